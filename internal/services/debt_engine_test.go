package services

import (
	"context"
	"errors"
	"testing"

	"ledgerbot/internal/core"
)

func TestInstallmentPlanCreation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.newCard(t, "Nubank")

	tx := env.record(t, RecordParams{
		AccountID:    card.ID,
		Value:        core.Money{Cents: -30000},
		Date:         core.NewDate(2025, 8, 1),
		Description:  "notebook",
		Installments: 3,
	})

	debt, err := env.store.GetDebt(ctx, tx.DebtID)
	if err != nil {
		t.Fatalf("get debt: %v", err)
	}
	if debt.Months != 3 || debt.MonthlyPayment.Cents != 10000 {
		t.Fatalf("debt = %+v", debt)
	}
	if debt.Kind != core.DebtInstallment || debt.CardAccountID != card.ID {
		t.Fatalf("debt links = %+v", debt)
	}
	if debt.Creditor != "Nubank - Parcelado #1" {
		t.Fatalf("creditor = %q", debt.Creditor)
	}

	// A second plan on the same card gets the next sequence.
	tx2 := env.record(t, RecordParams{
		AccountID:    card.ID,
		Value:        core.Money{Cents: -12000},
		Date:         core.NewDate(2025, 8, 2),
		Installments: 2,
	})
	debt2, _ := env.store.GetDebt(ctx, tx2.DebtID)
	if debt2.Creditor != "Nubank - Parcelado #2" || debt2.Sequence != 2 {
		t.Fatalf("second plan = %+v", debt2)
	}
}

func TestInstallmentRoundingDriftIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.newCard(t, "Nubank")

	// 100.00 over 3: per-installment rounds to 33.33, plan total 99.99.
	tx := env.record(t, RecordParams{
		AccountID:    card.ID,
		Value:        core.Money{Cents: -10000},
		Date:         core.NewDate(2025, 8, 1),
		Installments: 3,
	})
	debt, _ := env.store.GetDebt(ctx, tx.DebtID)
	if debt.MonthlyPayment.Cents != 3333 {
		t.Fatalf("monthly = %d, want 3333", debt.MonthlyPayment.Cents)
	}
	drift := 10000 - debt.Total().Cents
	if drift < 0 {
		drift = -drift
	}
	// Bounded by half a cent per installment; never reconciled.
	if drift > 3*1 {
		t.Fatalf("drift = %d", drift)
	}
	if tx.Value.Cents != -10000 {
		t.Fatalf("purchase value adjusted to %d", tx.Value.Cents)
	}
}

func TestUnpaidInvoiceComposition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	card := env.newCard(t, "Nubank")

	// Plain purchase counts in full, installment purchase one monthly cycle.
	env.record(t, RecordParams{AccountID: card.ID, Value: core.Money{Cents: -5000}, Date: core.NewDate(2025, 8, 3)})
	env.record(t, RecordParams{AccountID: card.ID, Value: core.Money{Cents: -30000}, Date: core.NewDate(2025, 8, 4), Installments: 3})

	total, err := env.debt.UnpaidInvoiceTotal(ctx, env.profile.ID, card.ID)
	if err != nil {
		t.Fatalf("unpaid total: %v", err)
	}
	if total.Cents != 15000 {
		t.Fatalf("total = %d, want 15000", total.Cents)
	}
}

func TestUnpaidInvoiceTotalRequiresCard(t *testing.T) {
	env := newTestEnv(t)
	principal := env.account(t, "Principal")

	if _, err := env.debt.UnpaidInvoiceTotal(context.Background(), env.profile.ID, principal.ID); !errors.Is(err, core.ErrNotCardAccount) {
		t.Fatalf("want ErrNotCardAccount, got %v", err)
	}
}

func TestInstallmentLifecycleOverThreeSettlements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.account(t, "Principal")
	card := env.newCard(t, "Nubank")

	purchase := env.record(t, RecordParams{
		AccountID:    card.ID,
		Value:        core.Money{Cents: -30000},
		Date:         core.NewDate(2025, 8, 1),
		Installments: 3,
	})

	for cycle, wantMonths := range []int{2, 1} {
		res, err := env.debt.SettleInvoice(ctx, env.profile.ID, principal.ID, card.ID,
			core.Money{Cents: 10000}, core.NewDate(2025, 9+cycle, 5))
		if err != nil {
			t.Fatalf("settle cycle %d: %v", cycle, err)
		}
		if res.DebtsReduced != 1 {
			t.Fatalf("cycle %d reduced %d debts", cycle+1, res.DebtsReduced)
		}
		debt, err := env.store.GetDebt(ctx, purchase.DebtID)
		if err != nil {
			t.Fatalf("cycle %d get debt: %v", cycle+1, err)
		}
		if debt.Months != wantMonths {
			t.Fatalf("cycle %d months = %d, want %d", cycle+1, debt.Months, wantMonths)
		}
		// The purchase entry stays open while the plan lives.
		tx, _ := env.store.GetTransaction(ctx, purchase.ID)
		if tx.IsSettled {
			t.Fatalf("cycle %d settled purchase early", cycle+1)
		}
	}

	res, err := env.debt.SettleInvoice(ctx, env.profile.ID, principal.ID, card.ID,
		core.Money{Cents: 10000}, core.NewDate(2025, 11, 5))
	if err != nil {
		t.Fatalf("final settle: %v", err)
	}
	if res.DebtsClosed != 1 {
		t.Fatalf("final settle closed %d debts", res.DebtsClosed)
	}
	if _, err := env.store.GetDebt(ctx, purchase.DebtID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("debt should be deleted, got %v", err)
	}
	tx, _ := env.store.GetTransaction(ctx, purchase.ID)
	if !tx.IsSettled {
		t.Fatalf("purchase entry not settled after final cycle")
	}

	total, _ := env.debt.UnpaidInvoiceTotal(ctx, env.profile.ID, card.ID)
	if total.Cents != 0 {
		t.Fatalf("invoice after lifecycle = %d", total.Cents)
	}
}

func TestSettleInvoiceOneCentStillDecrements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.account(t, "Principal")
	card := env.newCard(t, "Nubank")

	purchase := env.record(t, RecordParams{
		AccountID:    card.ID,
		Value:        core.Money{Cents: -30000},
		Date:         core.NewDate(2025, 8, 1),
		Installments: 3,
	})

	if _, err := env.debt.SettleInvoice(ctx, env.profile.ID, principal.ID, card.ID,
		core.Money{Cents: 1}, core.NewDate(2025, 8, 10)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	debt, err := env.store.GetDebt(ctx, purchase.DebtID)
	if err != nil {
		t.Fatalf("get debt: %v", err)
	}
	if debt.Months != 2 {
		t.Fatalf("months = %d, want 2", debt.Months)
	}
}

func TestSettleInvoiceSettlesPlainPurchases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.account(t, "Principal")
	card := env.newCard(t, "Nubank")

	env.record(t, RecordParams{AccountID: principal.ID, Value: core.Money{Cents: 100000}, Date: core.NewDate(2025, 8, 1)})
	p1 := env.record(t, RecordParams{AccountID: card.ID, Value: core.Money{Cents: -4000}, Date: core.NewDate(2025, 8, 2)})
	p2 := env.record(t, RecordParams{AccountID: card.ID, Value: core.Money{Cents: -6000}, Date: core.NewDate(2025, 8, 3)})

	res, err := env.debt.SettleInvoice(ctx, env.profile.ID, principal.ID, card.ID,
		core.Money{Cents: 10000}, core.NewDate(2025, 8, 10))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.TxsSettled != 2 {
		t.Fatalf("settled %d entries, want 2", res.TxsSettled)
	}
	for _, id := range []int64{p1.ID, p2.ID} {
		tx, _ := env.store.GetTransaction(ctx, id)
		if !tx.IsSettled || tx.SettlementID != res.CardTx.ID {
			t.Fatalf("entry %d not settled: %+v", id, tx)
		}
	}

	bank, _ := env.store.GetAccount(ctx, principal.ID)
	cardAcc, _ := env.store.GetAccount(ctx, card.ID)
	if bank.Balance.Cents != 90000 {
		t.Fatalf("bank balance = %d", bank.Balance.Cents)
	}
	if cardAcc.Balance.Cents != 0 {
		t.Fatalf("card balance = %d", cardAcc.Balance.Cents)
	}
}

func TestComputeAdvisory(t *testing.T) {
	cases := []struct {
		name     string
		monthly  int64
		months   int
		paid     int64
		wantKind AdvisoryKind
		wantDiff int64
		wantPct  string
	}{
		{"exact", 10000, 2, 20000, AdvisoryExact, 0, "0.00"},
		{"discount", 10000, 2, 18000, AdvisoryDiscount, 2000, "10.00"},
		{"surcharge", 10000, 1, 10500, AdvisorySurcharge, -500, "5.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adv := ComputeAdvisory(core.Money{Cents: tc.monthly}, tc.months, core.Money{Cents: tc.paid})
			if adv.Kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s", adv.Kind, tc.wantKind)
			}
			if adv.Diff.Cents != tc.wantDiff {
				t.Fatalf("diff = %d, want %d", adv.Diff.Cents, tc.wantDiff)
			}
			if adv.Percent != tc.wantPct {
				t.Fatalf("percent = %s, want %s", adv.Percent, tc.wantPct)
			}
		})
	}
}

func TestSettlePlainDebt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.account(t, "Principal")

	env.record(t, RecordParams{AccountID: principal.ID, Value: core.Money{Cents: 100000}, Date: core.NewDate(2025, 8, 1)})
	debt, err := env.profiles.AddDebt(ctx, env.profile.ID, "Financiamento", core.Money{Cents: 20000}, 5)
	if err != nil {
		t.Fatalf("add debt: %v", err)
	}

	adv, err := env.debt.SettlePlainDebt(ctx, env.profile.ID, debt.ID, principal.ID, 2,
		core.Money{Cents: 38000}, core.NewDate(2025, 8, 10))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if adv.Kind != AdvisoryDiscount || adv.Diff.Cents != 2000 {
		t.Fatalf("advisory = %+v", adv)
	}

	got, _ := env.store.GetDebt(ctx, debt.ID)
	if got.Months != 3 {
		t.Fatalf("months = %d, want 3", got.Months)
	}
	acc, _ := env.store.GetAccount(ctx, principal.ID)
	if acc.Balance.Cents != 62000 {
		t.Fatalf("balance = %d, want 62000", acc.Balance.Cents)
	}

	// Paying the remaining cycles deletes the record.
	if _, err := env.debt.SettlePlainDebt(ctx, env.profile.ID, debt.ID, principal.ID, 3,
		core.Money{Cents: 60000}, core.NewDate(2025, 9, 10)); err != nil {
		t.Fatalf("final settle: %v", err)
	}
	if _, err := env.store.GetDebt(ctx, debt.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("debt should be gone, got %v", err)
	}
}
