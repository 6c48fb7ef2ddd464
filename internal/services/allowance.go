package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

// AllowanceService projects a daily spending quota from the most recent
// inflow, amortized over one month. Read only.
type AllowanceService struct {
	store *storage.Store
}

func NewAllowanceService(store *storage.Store) *AllowanceService {
	return &AllowanceService{store: store}
}

// DailyAllowance computes the projection for the given account as of today.
// accountID zero selects the profile's spending account. When the account has
// never received an inflow, the current balance is spread over the remaining
// days of the calendar month with no carryover.
func (s *AllowanceService) DailyAllowance(ctx context.Context, profileID, accountID int64, today core.Date) (core.Allowance, error) {
	var acc core.Account
	var err error
	if accountID == 0 {
		acc, err = s.store.GetAccountByName(ctx, profileID, core.DefaultSpendingAccount)
	} else {
		acc, err = s.store.GetAccount(ctx, accountID)
	}
	if err != nil {
		return core.Allowance{}, fmt.Errorf("load account: %w", err)
	}
	if acc.ProfileID != profileID {
		return core.Allowance{}, core.ErrNotFound
	}

	inflow, err := s.store.LastInflow(ctx, acc.ID)
	if errors.Is(err, core.ErrNotFound) {
		return s.fallback(ctx, acc, today)
	}
	if err != nil {
		return core.Allowance{}, fmt.Errorf("find last inflow: %w", err)
	}

	// Funding amount: the balance immediately after the inflow landed.
	funding := decimal.New(inflow.BalanceBefore.Cents+inflow.Value.Cents, -2)

	windowStart := inflow.Date
	windowDays := windowStart.DaysUntil(windowStart.AddMonthClamped())
	if windowDays < 1 {
		windowDays = 1
	}
	quota := funding.Div(decimal.NewFromInt(int64(windowDays))).Round(2)

	// Days elapsed inclusive of the inflow date, exclusive of today.
	elapsed := windowStart.DaysUntil(today)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > windowDays {
		elapsed = windowDays
	}

	spentBefore, err := s.store.SumOutflows(ctx, acc.ID, windowStart, today)
	if err != nil {
		return core.Allowance{}, fmt.Errorf("sum prior outflows: %w", err)
	}
	spentToday, err := s.store.SumOutflows(ctx, acc.ID, today, today.AddDays(1))
	if err != nil {
		return core.Allowance{}, fmt.Errorf("sum today's outflows: %w", err)
	}

	generated := quota.Mul(decimal.NewFromInt(int64(elapsed)))
	carryover := generated.Sub(decimal.New(spentBefore, -2))

	todaysQuota := decimal.Zero
	if elapsed+1 <= windowDays {
		todaysQuota = quota
	}
	tomorrowsQuota := decimal.Zero
	if elapsed+2 <= windowDays {
		tomorrowsQuota = quota
	}

	availableToday := carryover.Add(todaysQuota)
	accumulated := availableToday.Sub(decimal.New(spentToday, -2))

	return core.Allowance{
		Quota:             core.FromDecimal(quota),
		AvailableToday:    core.FromDecimal(availableToday),
		SpentToday:        core.Money{Cents: spentToday},
		AccumulatedToday:  core.FromDecimal(accumulated),
		AvailableTomorrow: core.FromDecimal(accumulated.Add(tomorrowsQuota)),
		WindowStart:       windowStart,
		WindowDays:        windowDays,
	}, nil
}

func (s *AllowanceService) fallback(ctx context.Context, acc core.Account, today core.Date) (core.Allowance, error) {
	days := today.DaysLeftInMonth()
	quota := decimal.New(acc.Balance.Cents, -2).
		Div(decimal.NewFromInt(int64(days))).
		Round(2)

	spentToday, err := s.store.SumOutflows(ctx, acc.ID, today, today.AddDays(1))
	if err != nil {
		return core.Allowance{}, fmt.Errorf("sum today's outflows: %w", err)
	}

	accumulated := quota.Sub(decimal.New(spentToday, -2))
	tomorrow := decimal.Zero
	if days > 1 {
		tomorrow = quota
	}

	return core.Allowance{
		Quota:             core.FromDecimal(quota),
		AvailableToday:    core.FromDecimal(quota),
		SpentToday:        core.Money{Cents: spentToday},
		AccumulatedToday:  core.FromDecimal(accumulated),
		AvailableTomorrow: core.FromDecimal(tomorrow),
		WindowStart:       today,
		WindowDays:        days,
		Fallback:          true,
	}, nil
}
