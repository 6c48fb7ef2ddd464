// Command seed loads a demo profile with one month of realistic data so the
// wallet and summary flows have something to show.
package main

import (
	"context"
	"os"
	"strings"

	"ledgerbot/internal/cli"
	"ledgerbot/internal/core"
	"ledgerbot/internal/services"
)

const demoChatID = 999001

type seedTx struct {
	cents    int64 // signed
	date     core.Date
	desc     string
	category string
}

var seedData = []seedTx{
	{480000, core.NewDate(2025, 8, 20), "i9tv", ""},

	{-2000, core.NewDate(2025, 8, 22), "gabi", "Pessoal"},
	{-20000, core.NewDate(2025, 8, 22), "calyton", "Pessoal"},
	{-76900, core.NewDate(2025, 8, 22), "fatura cartão pf", "Cartão de Crédito"},
	{-6200, core.NewDate(2025, 8, 22), "celular", "Telefonia"},
	{-6800, core.NewDate(2025, 8, 22), "internet", "Internet"},
	{-37100, core.NewDate(2025, 8, 22), "supermercado", "Mercado"},
	{-44300, core.NewDate(2025, 8, 22), "bemol conta", "Contas"},
	{-4400, core.NewDate(2025, 8, 22), "bemol remédio", "Saúde"},
	{-8100, core.NewDate(2025, 8, 22), "das", "Impostos"},
	{-135000, core.NewDate(2025, 8, 22), "aluguel", "Moradia"},
	{-50000, core.NewDate(2025, 8, 22), "energia", "Energia"},
	{-94400, core.NewDate(2025, 8, 22), "nubanck conta", "Contas"},
}

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	ctx := context.Background()
	profiles := services.NewProfileService(store)
	balance := services.NewBalanceEngine(store, nil)

	profile, err := profiles.GetOrCreate(ctx, demoChatID, "Demo")
	if err != nil {
		logger.Error("Failed to create demo profile", "error", err)
		os.Exit(1)
	}

	accounts, err := profiles.ListAccounts(ctx, profile.ID)
	if err != nil {
		logger.Error("Failed to list accounts", "error", err)
		os.Exit(1)
	}
	var bank core.Account
	for _, acc := range accounts {
		if strings.EqualFold(acc.Name, core.DefaultMainAccount) {
			bank = acc
		}
	}
	if bank.ID == 0 {
		logger.Error("Main account missing for demo profile")
		os.Exit(1)
	}

	categories := make(map[string]int64)
	existing, err := profiles.ListCategories(ctx, profile.ID)
	if err != nil {
		logger.Error("Failed to list categories", "error", err)
		os.Exit(1)
	}
	for _, c := range existing {
		categories[c.Name] = c.ID
	}

	for _, tx := range seedData {
		var categoryID int64
		if tx.category != "" {
			id, ok := categories[tx.category]
			if !ok {
				cat, err := profiles.CreateCategory(ctx, profile.ID, tx.category, core.CategoryVariable)
				if err != nil {
					logger.Error("Failed to create category", "name", tx.category, "error", err)
					os.Exit(1)
				}
				id = cat.ID
				categories[tx.category] = id
			}
			categoryID = id
		}

		if _, err := balance.Record(ctx, services.RecordParams{
			ProfileID:   profile.ID,
			AccountID:   bank.ID,
			CategoryID:  categoryID,
			Value:       core.Money{Cents: tx.cents},
			Date:        tx.date,
			Description: tx.desc,
		}); err != nil {
			logger.Error("Failed to record seed transaction", "description", tx.desc, "error", err)
			os.Exit(1)
		}
	}

	final, err := profiles.ListAccounts(ctx, profile.ID)
	if err == nil {
		for _, acc := range final {
			if acc.ID == bank.ID {
				logger.Info("Seed finished", "account", acc.Name, "balance", acc.Balance.Format())
			}
		}
	}
}
