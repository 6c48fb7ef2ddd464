package services

import (
	"context"
	"path/filepath"
	"testing"

	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

type testEnv struct {
	store     *storage.Store
	balance   *BalanceEngine
	debt      *DebtEngine
	allowance *AllowanceService
	profiles  *ProfileService
	summary   *SummaryService
	profile   core.Profile
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		store:     store,
		balance:   NewBalanceEngine(store, nil),
		debt:      NewDebtEngine(store, nil),
		allowance: NewAllowanceService(store),
		profiles:  NewProfileService(store),
		summary:   NewSummaryService(store, nil),
	}
	env.profile, err = env.profiles.GetOrCreate(context.Background(), 1001, "Ana")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return env
}

func (env *testEnv) account(t *testing.T, name string) core.Account {
	t.Helper()
	acc, err := env.store.GetAccountByName(context.Background(), env.profile.ID, name)
	if err != nil {
		t.Fatalf("account %q: %v", name, err)
	}
	return acc
}

func (env *testEnv) newCard(t *testing.T, name string) core.Account {
	t.Helper()
	card, err := env.profiles.CreateAccount(context.Background(), env.profile.ID, name, core.AccountCreditCard, core.BRL)
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	return card
}

func (env *testEnv) newCategory(t *testing.T, name string, kind core.CategoryKind) core.Category {
	t.Helper()
	cat, err := env.profiles.CreateCategory(context.Background(), env.profile.ID, name, kind)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return cat
}

func (env *testEnv) record(t *testing.T, p RecordParams) core.Transaction {
	t.Helper()
	p.ProfileID = env.profile.ID
	tx, err := env.balance.Record(context.Background(), p)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return tx
}

// replayBalance accumulates the account's entries from zero, ordered by
// (date, id), to check ledger conservation against the cached balance.
func (env *testEnv) replayBalance(t *testing.T, accountID int64) int64 {
	t.Helper()
	ctx := context.Background()
	var sum int64
	for m := 1; m <= 12; m++ {
		txs, err := env.store.ListByMonth(ctx, env.profile.ID, 2025, m)
		if err != nil {
			t.Fatalf("list month %d: %v", m, err)
		}
		for _, tx := range txs {
			if tx.AccountID == accountID {
				sum += tx.Value.Cents
			}
		}
	}
	return sum
}
