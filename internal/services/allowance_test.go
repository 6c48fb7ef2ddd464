package services

import (
	"context"
	"testing"

	"ledgerbot/internal/core"
)

func TestDailyAllowanceWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spending := env.account(t, "Disponível")

	// Funding 3100.00 on Aug 1; the window runs to Sep 1, 31 days, so the
	// daily quota is a round 100.00.
	env.record(t, RecordParams{AccountID: spending.ID, Value: core.Money{Cents: 310000}, Date: core.NewDate(2025, 8, 1)})
	env.record(t, RecordParams{AccountID: spending.ID, Value: core.Money{Cents: -40000}, Date: core.NewDate(2025, 8, 5)})
	env.record(t, RecordParams{AccountID: spending.ID, Value: core.Money{Cents: -5000}, Date: core.NewDate(2025, 8, 11)})

	a, err := env.allowance.DailyAllowance(ctx, env.profile.ID, spending.ID, core.NewDate(2025, 8, 11))
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}

	if a.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if a.WindowDays != 31 {
		t.Fatalf("window days = %d, want 31", a.WindowDays)
	}
	if a.Quota.Cents != 10000 {
		t.Fatalf("quota = %d, want 10000", a.Quota.Cents)
	}
	// 10 elapsed days generated 1000.00, minus 400.00 spent, plus today's
	// quota of 100.00.
	if a.AvailableToday.Cents != 70000 {
		t.Fatalf("available today = %d, want 70000", a.AvailableToday.Cents)
	}
	if a.SpentToday.Cents != 5000 {
		t.Fatalf("spent today = %d, want 5000", a.SpentToday.Cents)
	}
	if a.AccumulatedToday.Cents != 65000 {
		t.Fatalf("accumulated = %d, want 65000", a.AccumulatedToday.Cents)
	}
	if a.AvailableTomorrow.Cents != 75000 {
		t.Fatalf("available tomorrow = %d, want 75000", a.AvailableTomorrow.Cents)
	}
}

func TestDailyAllowanceWindowEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spending := env.account(t, "Disponível")

	env.record(t, RecordParams{AccountID: spending.ID, Value: core.Money{Cents: 310000}, Date: core.NewDate(2025, 8, 1)})

	// On the last window day only today's quota accrues; tomorrow none.
	a, err := env.allowance.DailyAllowance(ctx, env.profile.ID, spending.ID, core.NewDate(2025, 8, 31))
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if a.AvailableToday.Cents != 310000 {
		t.Fatalf("available today = %d, want 310000", a.AvailableToday.Cents)
	}
	if a.AvailableTomorrow.Cents != a.AccumulatedToday.Cents {
		t.Fatalf("tomorrow should add no quota: %d vs %d", a.AvailableTomorrow.Cents, a.AccumulatedToday.Cents)
	}

	// Past the window everything is carryover, no fresh quota.
	a, err = env.allowance.DailyAllowance(ctx, env.profile.ID, spending.ID, core.NewDate(2025, 9, 15))
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if a.AvailableToday.Cents != 310000 {
		t.Fatalf("past window available = %d, want 310000", a.AvailableToday.Cents)
	}
}

func TestDailyAllowanceAnchorsOnTransferIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	principal := env.account(t, "Principal")
	spending := env.account(t, "Disponível")

	// Salary lands on the main account and is moved over; the transfer leg
	// is the spending account's only inflow and must open the window.
	env.record(t, RecordParams{AccountID: principal.ID, Value: core.Money{Cents: 400000}, Date: core.NewDate(2025, 8, 1)})
	if err := env.profiles.Transfer(ctx, env.profile.ID, principal.ID, spending.ID, core.Money{Cents: 310000}, core.NewDate(2025, 8, 1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	a, err := env.allowance.DailyAllowance(ctx, env.profile.ID, spending.ID, core.NewDate(2025, 8, 11))
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if a.Fallback {
		t.Fatalf("transfer inflow should anchor the window, got fallback")
	}
	if a.WindowStart.ISO() != "2025-08-01" {
		t.Fatalf("window start = %s, want 2025-08-01", a.WindowStart.ISO())
	}
	if a.WindowDays != 31 || a.Quota.Cents != 10000 {
		t.Fatalf("quota = %d over %d days, want 10000 over 31", a.Quota.Cents, a.WindowDays)
	}
}

func TestDailyAllowanceMonthEndClamp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spending := env.account(t, "Disponível")

	// Jan 31 -> Feb 28: a 28 day window.
	env.record(t, RecordParams{AccountID: spending.ID, Value: core.Money{Cents: 280000}, Date: core.NewDate(2025, 1, 31)})

	a, err := env.allowance.DailyAllowance(ctx, env.profile.ID, spending.ID, core.NewDate(2025, 2, 1))
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if a.WindowDays != 28 {
		t.Fatalf("window days = %d, want 28", a.WindowDays)
	}
	if a.Quota.Cents != 10000 {
		t.Fatalf("quota = %d, want 10000", a.Quota.Cents)
	}
}

func TestDailyAllowanceFallbackWithoutInflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spending := env.account(t, "Disponível")

	// Balance arrives without any inflow entry.
	if err := env.store.SetAccountBalance(ctx, spending.ID, 310000); err != nil {
		t.Fatalf("set balance: %v", err)
	}

	a, err := env.allowance.DailyAllowance(ctx, env.profile.ID, spending.ID, core.NewDate(2025, 8, 1))
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if !a.Fallback {
		t.Fatalf("expected fallback path")
	}
	if a.WindowDays != 31 || a.Quota.Cents != 10000 {
		t.Fatalf("fallback quota = %d over %d days", a.Quota.Cents, a.WindowDays)
	}
	if a.AvailableToday.Cents != 10000 {
		t.Fatalf("available today = %d", a.AvailableToday.Cents)
	}
}

func TestDailyAllowanceDefaultsToSpendingAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spending := env.account(t, "Disponível")

	env.record(t, RecordParams{AccountID: spending.ID, Value: core.Money{Cents: 310000}, Date: core.NewDate(2025, 8, 1)})

	a, err := env.allowance.DailyAllowance(ctx, env.profile.ID, 0, core.NewDate(2025, 8, 2))
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if a.Quota.Cents != 10000 {
		t.Fatalf("quota = %d", a.Quota.Cents)
	}
}
