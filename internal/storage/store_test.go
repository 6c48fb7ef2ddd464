package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ledgerbot/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedProfile(t *testing.T, s *Store) core.Profile {
	t.Helper()
	p, err := s.CreateProfile(context.Background(), CreateProfileParams{ExternalID: 42, Name: "Ana"})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

func TestProfileRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := seedProfile(t, s)
	got, err := s.GetProfileByExternalID(ctx, 42)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.ID != p.ID || got.Name != "Ana" {
		t.Fatalf("unexpected profile %+v", got)
	}

	if err := s.UpdateEmergencyFund(ctx, p.ID, 50000); err != nil {
		t.Fatalf("update fund: %v", err)
	}
	got, _ = s.GetProfileByExternalID(ctx, 42)
	if got.EmergencyFund.Cents != 50000 {
		t.Fatalf("emergency fund = %d", got.EmergencyFund.Cents)
	}

	if _, err := s.GetProfileByExternalID(ctx, 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountLookupIsCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, s)

	_, err := s.CreateAccount(ctx, CreateAccountParams{
		ProfileID: p.ID, Name: "Disponível", Kind: core.AccountBank, Currency: core.BRL,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	got, err := s.GetAccountByName(ctx, p.ID, "disponível")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Name != "Disponível" {
		t.Fatalf("got %q", got.Name)
	}
}

func TestTransactionNullableLinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, s)

	acc, _ := s.CreateAccount(ctx, CreateAccountParams{ProfileID: p.ID, Name: "Principal", Kind: core.AccountBank, Currency: core.BRL})
	cat, _ := s.CreateCategory(ctx, CreateCategoryParams{ProfileID: p.ID, Name: "Mercado", Kind: core.CategoryVariable})

	tx, err := s.CreateTransaction(ctx, CreateTransactionParams{
		ProfileID:  p.ID,
		AccountID:  acc.ID,
		CategoryID: cat.ID,
		ValueCents: -1500,
		Date:       core.NewDate(2025, 8, 22),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	got, err := s.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.TransferAccountID != 0 || got.SettlementID != 0 || got.DebtID != 0 {
		t.Fatalf("expected zero optional links, got %+v", got)
	}
	if got.Date.ISO() != "2025-08-22" {
		t.Fatalf("date = %s", got.Date.ISO())
	}
}

func TestLastTransactionOnDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, s)

	acc, _ := s.CreateAccount(ctx, CreateAccountParams{ProfileID: p.ID, Name: "Principal", Kind: core.AccountBank, Currency: core.BRL})
	cat, _ := s.CreateCategory(ctx, CreateCategoryParams{ProfileID: p.ID, Name: "Outros", Kind: core.CategoryVariable})

	day := core.NewDate(2025, 8, 20)
	for _, v := range []int64{-100, -200, -300} {
		if _, err := s.CreateTransaction(ctx, CreateTransactionParams{
			ProfileID: p.ID, AccountID: acc.ID, CategoryID: cat.ID, ValueCents: v, Date: day,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	last, err := s.LastTransactionOnDate(ctx, acc.ID, day)
	if err != nil {
		t.Fatalf("last on date: %v", err)
	}
	if last.Value.Cents != -300 {
		t.Fatalf("expected last insert, got %d", last.Value.Cents)
	}

	if _, err := s.LastTransactionOnDate(ctx, acc.ID, core.NewDate(2025, 8, 21)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMonthAggregatesExcludeTransfers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, s)

	bank, _ := s.CreateAccount(ctx, CreateAccountParams{ProfileID: p.ID, Name: "Principal", Kind: core.AccountBank, Currency: core.BRL})
	other, _ := s.CreateAccount(ctx, CreateAccountParams{ProfileID: p.ID, Name: "Poupança", Kind: core.AccountBank, Currency: core.BRL})
	fixed, _ := s.CreateCategory(ctx, CreateCategoryParams{ProfileID: p.ID, Name: "Moradia", Kind: core.CategoryFixed})
	variable, _ := s.CreateCategory(ctx, CreateCategoryParams{ProfileID: p.ID, Name: "Mercado", Kind: core.CategoryVariable})

	day := core.NewDate(2025, 8, 10)
	mk := func(acc int64, cat int64, v int64, transfer bool, transferAcc int64) {
		t.Helper()
		if _, err := s.CreateTransaction(ctx, CreateTransactionParams{
			ProfileID: p.ID, AccountID: acc, CategoryID: cat, ValueCents: v, Date: day,
			IsTransfer: transfer, TransferAccountID: transferAcc,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mk(bank.ID, variable.ID, 480000, false, 0)
	mk(bank.ID, fixed.ID, -135000, false, 0)
	mk(bank.ID, variable.ID, -20000, false, 0)
	mk(bank.ID, variable.ID, -50000, true, other.ID) // transfer out, must not count
	mk(other.ID, variable.ID, 50000, true, bank.ID)  // transfer in, must not count

	flows, err := s.MonthFlows(ctx, p.ID, 2025, 8)
	if err != nil {
		t.Fatalf("month flows: %v", err)
	}
	if flows.InflowCents != 480000 || flows.OutflowCents != 155000 {
		t.Fatalf("flows = %+v", flows)
	}

	totals, err := s.CategoryOutflowTotals(ctx, p.ID, 2025, 8)
	if err != nil {
		t.Fatalf("category totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(totals))
	}
	if totals[0].Name != "Moradia" || totals[0].Amount.Cents != 135000 {
		t.Fatalf("top category = %+v", totals[0])
	}

	nets, err := s.NetByMonth(ctx, p.ID, core.NewDate(2025, 1, 1))
	if err != nil {
		t.Fatalf("net by month: %v", err)
	}
	if len(nets) != 1 || nets[0].Year != 2025 || nets[0].Month != 8 || nets[0].Net.Cents != 325000 {
		t.Fatalf("nets = %+v", nets)
	}
}

func TestMaxInstallmentSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, s)

	card, _ := s.CreateAccount(ctx, CreateAccountParams{ProfileID: p.ID, Name: "Nubank", Kind: core.AccountCreditCard, Currency: core.BRL})

	seq, err := s.MaxInstallmentSequence(ctx, card.ID)
	if err != nil || seq != 0 {
		t.Fatalf("empty card: seq=%d err=%v", seq, err)
	}

	for i := 1; i <= 3; i++ {
		if _, err := s.CreateDebt(ctx, CreateDebtParams{
			ProfileID: p.ID, Creditor: "Nubank - Parcelado", MonthlyPaymentCents: 10000,
			Months: 3, Kind: core.DebtInstallment, CardAccountID: card.ID, Sequence: i,
		}); err != nil {
			t.Fatalf("create debt: %v", err)
		}
	}

	seq, err = s.MaxInstallmentSequence(ctx, card.ID)
	if err != nil || seq != 3 {
		t.Fatalf("seq=%d err=%v", seq, err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := seedProfile(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(q *Queries) error {
		if _, err := q.CreateAccount(ctx, CreateAccountParams{
			ProfileID: p.ID, Name: "Temp", Kind: core.AccountBank, Currency: core.BRL,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.GetAccountByName(ctx, p.ID, "Temp"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}
