package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

// ProfileService manages profiles, their accounts and manual debts, and
// inter-account transfers.
type ProfileService struct {
	store *storage.Store
}

func NewProfileService(store *storage.Store) *ProfileService {
	return &ProfileService{store: store}
}

// GetOrCreate finds the profile for an external chat identity, creating it
// with the two default bank accounts on first contact.
func (s *ProfileService) GetOrCreate(ctx context.Context, externalID int64, name string) (core.Profile, error) {
	profile, err := s.store.GetProfileByExternalID(ctx, externalID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Profile{}, fmt.Errorf("find profile: %w", err)
	}

	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		profile, err = q.CreateProfile(ctx, storage.CreateProfileParams{ExternalID: externalID, Name: name})
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		for _, accName := range []string{core.DefaultSpendingAccount, core.DefaultMainAccount} {
			if _, err := q.CreateAccount(ctx, storage.CreateAccountParams{
				ProfileID: profile.ID,
				Name:      accName,
				Kind:      core.AccountBank,
				Currency:  core.BRL,
			}); err != nil {
				return fmt.Errorf("seed account %s: %w", accName, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Profile{}, err
	}

	slog.InfoContext(ctx, "Profile created", "profile_id", profile.ID)
	return profile, nil
}

// Get returns the profile for an external identity or ErrProfileRequired.
func (s *ProfileService) Get(ctx context.Context, externalID int64) (core.Profile, error) {
	profile, err := s.store.GetProfileByExternalID(ctx, externalID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Profile{}, core.ErrProfileRequired
	}
	return profile, err
}

// Rename changes the profile's display name.
func (s *ProfileService) Rename(ctx context.Context, profileID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	return s.store.UpdateProfileName(ctx, profileID, name)
}

func (s *ProfileService) SetEmergencyFund(ctx context.Context, profileID int64, amount core.Money) error {
	if amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	return s.store.UpdateEmergencyFund(ctx, profileID, amount.Cents)
}

// CreateAccount adds a bank or card account. Default account names are
// reserved.
func (s *ProfileService) CreateAccount(ctx context.Context, profileID int64, name string, kind core.AccountKind, currency core.Currency) (core.Account, error) {
	acc := core.Account{ProfileID: profileID, Name: strings.TrimSpace(name), Kind: kind, Currency: currency}
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	if acc.IsDefault() {
		return core.Account{}, core.ErrReservedName
	}
	return s.store.CreateAccount(ctx, storage.CreateAccountParams{
		ProfileID: profileID,
		Name:      acc.Name,
		Kind:      kind,
		Currency:  currency,
	})
}

// RenameAccount changes an account's display name. The seeded defaults keep
// their names.
func (s *ProfileService) RenameAccount(ctx context.Context, profileID, accountID int64, name string) error {
	acc, err := s.ownedAccount(ctx, profileID, accountID)
	if err != nil {
		return err
	}
	if acc.IsDefault() {
		return core.ErrReservedName
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	if (core.Account{Name: name}).IsDefault() {
		return core.ErrReservedName
	}
	return s.store.RenameAccount(ctx, accountID, name)
}

// RemoveAccount deletes an account. Defaults are protected and the balance
// must be exactly zero.
func (s *ProfileService) RemoveAccount(ctx context.Context, profileID, accountID int64) error {
	acc, err := s.ownedAccount(ctx, profileID, accountID)
	if err != nil {
		return err
	}
	if acc.IsDefault() {
		return core.ErrReservedName
	}
	if acc.Balance.Cents != 0 {
		return core.ErrNonZeroBalance
	}
	return s.store.DeleteAccount(ctx, accountID)
}

func (s *ProfileService) ownedAccount(ctx context.Context, profileID, accountID int64) (core.Account, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if acc.ProfileID != profileID {
		return core.Account{}, core.ErrNotFound
	}
	return acc, nil
}

// Transfer moves money between two owned accounts as a linked pair of
// transfer-flagged entries. When the destination is a credit card, the
// transferred amount also settles the card's unsettled plain purchases
// oldest first, each only when fully covered by what remains.
func (s *ProfileService) Transfer(ctx context.Context, profileID, fromID, toID int64, amount core.Money, date core.Date) error {
	if fromID == toID {
		return core.ErrSameAccount
	}
	if amount.Cents <= 0 {
		return core.ErrInvalidAmount
	}

	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		from, err := q.GetAccount(ctx, fromID)
		if err != nil {
			return fmt.Errorf("load origin: %w", err)
		}
		to, err := q.GetAccount(ctx, toID)
		if err != nil {
			return fmt.Errorf("load destination: %w", err)
		}
		if from.ProfileID != profileID || to.ProfileID != profileID {
			return core.ErrNotFound
		}

		description := fmt.Sprintf("Transferência %s -> %s", from.Name, to.Name)
		outLeg, err := applyTransaction(ctx, q, storage.CreateTransactionParams{
			ProfileID:         profileID,
			AccountID:         from.ID,
			ValueCents:        -amount.Cents,
			Date:              date,
			Description:       description,
			IsTransfer:        true,
			TransferAccountID: to.ID,
		})
		if err != nil {
			return err
		}
		inLeg, err := applyTransaction(ctx, q, storage.CreateTransactionParams{
			ProfileID:         profileID,
			AccountID:         to.ID,
			ValueCents:        amount.Cents,
			Date:              date,
			Description:       description,
			IsTransfer:        true,
			TransferAccountID: from.ID,
			SettlementID:      outLeg.ID,
		})
		if err != nil {
			return err
		}
		if err := q.LinkSettlement(ctx, outLeg.ID, inLeg.ID); err != nil {
			return fmt.Errorf("link pair: %w", err)
		}

		if to.IsCard() {
			return allocateToCard(ctx, q, to.ID, inLeg.ID, amount)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transfer recorded",
		"account_id", fromID,
		"amount_cents", amount.Cents,
		"date", date.ISO())
	return nil
}

// allocateToCard settles the card's unsettled plain purchases oldest first.
// Installment-linked purchases are skipped; their cycles only move through
// invoice settlement.
func allocateToCard(ctx context.Context, q *storage.Queries, cardID, settlementID int64, amount core.Money) error {
	unsettled, err := q.ListUnsettledByAccount(ctx, cardID)
	if err != nil {
		return fmt.Errorf("list unsettled: %w", err)
	}
	remaining := amount.Cents
	for _, tx := range unsettled {
		if remaining <= 0 {
			break
		}
		if !tx.IsOutflow() || tx.DebtID != 0 || tx.ID == settlementID {
			continue
		}
		cost := -tx.Value.Cents
		if cost > remaining {
			continue
		}
		if err := q.MarkSettled(ctx, tx.ID, settlementID); err != nil {
			return fmt.Errorf("settle entry: %w", err)
		}
		remaining -= cost
	}
	return nil
}

// categories

func (s *ProfileService) CreateCategory(ctx context.Context, profileID int64, name string, kind core.CategoryKind) (core.Category, error) {
	cat := core.Category{ProfileID: profileID, Name: strings.TrimSpace(name), Kind: kind}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, storage.CreateCategoryParams{
		ProfileID: profileID,
		Name:      cat.Name,
		Kind:      kind,
	})
}

func (s *ProfileService) ListCategories(ctx context.Context, profileID int64) ([]core.Category, error) {
	return s.store.ListCategories(ctx, profileID)
}

func (s *ProfileService) ListAccounts(ctx context.Context, profileID int64) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, profileID)
}

func (s *ProfileService) ListDebts(ctx context.Context, profileID int64) ([]core.Debt, error) {
	return s.store.ListDebts(ctx, profileID)
}

// RecentTransactions returns the profile's latest entries, newest first.
func (s *ProfileService) RecentTransactions(ctx context.Context, profileID int64, limit int) ([]core.Transaction, error) {
	return s.store.ListRecent(ctx, profileID, limit)
}

// DayStatement lists an account's entries on a single date, oldest first.
func (s *ProfileService) DayStatement(ctx context.Context, profileID, accountID int64, date core.Date) ([]core.Transaction, error) {
	if _, err := s.ownedAccount(ctx, profileID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListOnDate(ctx, accountID, date)
}

// debt CRUD

func (s *ProfileService) AddDebt(ctx context.Context, profileID int64, creditor string, monthly core.Money, months int) (core.Debt, error) {
	debt := core.Debt{
		ProfileID:      profileID,
		Creditor:       strings.TrimSpace(creditor),
		MonthlyPayment: monthly,
		Months:         months,
		Kind:           core.DebtPlain,
	}
	if err := debt.Validate(); err != nil {
		return core.Debt{}, err
	}
	if monthly.Cents <= 0 {
		return core.Debt{}, core.ErrInvalidAmount
	}
	if months == 0 {
		return core.Debt{}, core.ErrInvalidMonths
	}
	return s.store.CreateDebt(ctx, storage.CreateDebtParams{
		ProfileID:           profileID,
		Creditor:            debt.Creditor,
		MonthlyPaymentCents: monthly.Cents,
		Months:              months,
		Kind:                core.DebtPlain,
	})
}

func (s *ProfileService) ownedDebt(ctx context.Context, profileID, debtID int64) (core.Debt, error) {
	debt, err := s.store.GetDebt(ctx, debtID)
	if err != nil {
		return core.Debt{}, err
	}
	if debt.ProfileID != profileID {
		return core.Debt{}, core.ErrNotFound
	}
	return debt, nil
}

func (s *ProfileService) UpdateDebtMonthly(ctx context.Context, profileID, debtID int64, monthly core.Money) error {
	if monthly.Cents <= 0 {
		return core.ErrInvalidAmount
	}
	if _, err := s.ownedDebt(ctx, profileID, debtID); err != nil {
		return err
	}
	return s.store.SetDebtMonthlyPayment(ctx, debtID, monthly.Cents)
}

func (s *ProfileService) UpdateDebtMonths(ctx context.Context, profileID, debtID int64, months int) error {
	if months <= 0 {
		return core.ErrInvalidMonths
	}
	if _, err := s.ownedDebt(ctx, profileID, debtID); err != nil {
		return err
	}
	return s.store.SetDebtMonths(ctx, debtID, months)
}

// RemoveDebt deletes a debt at any remaining month count. Removal is a user
// decision, not a settlement; no ledger entry is written.
func (s *ProfileService) RemoveDebt(ctx context.Context, profileID, debtID int64) error {
	if _, err := s.ownedDebt(ctx, profileID, debtID); err != nil {
		return err
	}
	return s.store.DeleteDebt(ctx, debtID)
}

// Snapshot gathers the account overview: balances, open debts, unpaid totals
// per card and six-month flow averages.
func (s *ProfileService) Snapshot(ctx context.Context, profileID int64, today core.Date) (core.ProfileSnapshot, error) {
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return core.ProfileSnapshot{}, fmt.Errorf("load profile: %w", err)
	}
	snap := core.ProfileSnapshot{Profile: profile, CardUnpaid: make(map[int64]core.Money)}

	accounts, err := s.store.ListAccounts(ctx, profileID)
	if err != nil {
		return core.ProfileSnapshot{}, fmt.Errorf("list accounts: %w", err)
	}
	snap.Accounts = accounts

	for _, acc := range accounts {
		if !acc.IsCard() {
			continue
		}
		total, err := unpaidInvoiceTotal(ctx, s.store.Queries, acc.ID)
		if err != nil {
			return core.ProfileSnapshot{}, err
		}
		snap.CardUnpaid[acc.ID] = total
	}

	debts, err := s.store.ListDebts(ctx, profileID)
	if err != nil {
		return core.ProfileSnapshot{}, fmt.Errorf("list debts: %w", err)
	}
	snap.Debts = debts

	var inflow, outflow int64
	months := 0
	cursor := today
	for i := 0; i < 6; i++ {
		flows, err := s.store.MonthFlows(ctx, profileID, cursor.Year(), int(cursor.Time.Month()))
		if err != nil {
			return core.ProfileSnapshot{}, fmt.Errorf("month flows: %w", err)
		}
		inflow += flows.InflowCents
		outflow += flows.OutflowCents
		months++
		cursor = core.NewDate(cursor.Year(), int(cursor.Time.Month()), 1).AddDays(-1)
	}
	snap.MeanInflow = core.Money{Cents: inflow / int64(months)}
	snap.MeanOutflow = core.Money{Cents: outflow / int64(months)}

	return snap, nil
}
