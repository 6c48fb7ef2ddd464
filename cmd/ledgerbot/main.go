package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/chat"
	"ledgerbot/internal/cli"
	"ledgerbot/internal/export"
	"ledgerbot/internal/services"
	"ledgerbot/internal/telegram"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)

	// AMQP is optional; services tolerate a nil client.
	var events *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without events", "error", err)
		} else {
			logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	profiles := services.NewProfileService(store)
	balance := services.NewBalanceEngine(store, events)
	debts := services.NewDebtEngine(store, events)
	allowance := services.NewAllowanceService(store)
	summary := services.NewSummaryService(store, events)

	if cfg.SheetsEnabled() {
		exporter, err := export.NewSheets(context.Background(),
			cfg.GoogleSpreadsheetID, cfg.GoogleSheetName,
			cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
		if err != nil {
			logger.Warn("Sheets export unavailable", "error", err)
		} else {
			summary.SetExporter(exporter)
			logger.Info("Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	}

	router := chat.NewRouter(profiles, balance, debts, allowance, summary)

	bot, err := telegram.New(cfg.TelegramToken, cfg.TelegramPollTimeout, router, logger)
	if err != nil {
		logger.Error("Failed to start Telegram bot", "error", err)
		return
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if events != nil {
			if err := events.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})

	logger.Info("ledgerbot started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot stopped with error", "error", err)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("ledgerbot stopped")
}
