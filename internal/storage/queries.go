package storage

import (
	"context"
	"database/sql"
	"errors"

	"ledgerbot/internal/core"
)

// DBTX is the query execution surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// WithTx returns a Queries bound to an open transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func fromNull(n sql.NullInt64) int64 {
	if n.Valid {
		return n.Int64
	}
	return 0
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// --- profiles ---

type CreateProfileParams struct {
	ExternalID int64
	Name       string
}

func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (core.Profile, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO profiles (external_id, name) VALUES (?, ?)`,
		arg.ExternalID, arg.Name)
	if err != nil {
		return core.Profile{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Profile{}, err
	}
	return core.Profile{ID: id, ExternalID: arg.ExternalID, Name: arg.Name}, nil
}

func (q *Queries) GetProfile(ctx context.Context, id int64) (core.Profile, error) {
	var p core.Profile
	err := q.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, emergency_fund_cents FROM profiles WHERE id = ?`,
		id).Scan(&p.ID, &p.ExternalID, &p.Name, &p.EmergencyFund.Cents)
	return p, mapNoRows(err)
}

func (q *Queries) GetProfileByExternalID(ctx context.Context, externalID int64) (core.Profile, error) {
	var p core.Profile
	err := q.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, emergency_fund_cents FROM profiles WHERE external_id = ?`,
		externalID).Scan(&p.ID, &p.ExternalID, &p.Name, &p.EmergencyFund.Cents)
	return p, mapNoRows(err)
}

func (q *Queries) UpdateProfileName(ctx context.Context, id int64, name string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE profiles SET name = ? WHERE id = ?`, name, id)
	return err
}

func (q *Queries) UpdateEmergencyFund(ctx context.Context, id int64, cents int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE profiles SET emergency_fund_cents = ? WHERE id = ?`, cents, id)
	return err
}

// --- accounts ---

type CreateAccountParams struct {
	ProfileID    int64
	Name         string
	Kind         core.AccountKind
	Currency     core.Currency
	BalanceCents int64
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (core.Account, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (profile_id, name, kind, currency, balance_cents) VALUES (?, ?, ?, ?, ?)`,
		arg.ProfileID, arg.Name, string(arg.Kind), string(arg.Currency), arg.BalanceCents)
	if err != nil {
		return core.Account{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, err
	}
	return core.Account{
		ID:        id,
		ProfileID: arg.ProfileID,
		Name:      arg.Name,
		Kind:      arg.Kind,
		Currency:  arg.Currency,
		Balance:   core.Money{Cents: arg.BalanceCents},
	}, nil
}

const accountColumns = `id, profile_id, name, kind, currency, balance_cents`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.ProfileID, &a.Name, (*string)(&a.Kind), (*string)(&a.Currency), &a.Balance.Cents)
	return a, err
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	return a, mapNoRows(err)
}

func (q *Queries) GetAccountByName(ctx context.Context, profileID int64, name string) (core.Account, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE profile_id = ? AND name = ? COLLATE NOCASE`,
		profileID, name))
	return a, mapNoRows(err)
}

func (q *Queries) ListAccounts(ctx context.Context, profileID int64) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE profile_id = ? ORDER BY id`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) SetAccountBalance(ctx context.Context, id int64, cents int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE accounts SET balance_cents = ? WHERE id = ?`, cents, id)
	return err
}

// AddToAccountBalance applies a signed delta atomically at the database.
func (q *Queries) AddToAccountBalance(ctx context.Context, id int64, deltaCents int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`, deltaCents, id)
	return err
}

func (q *Queries) RenameAccount(ctx context.Context, id int64, name string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE accounts SET name = ? WHERE id = ?`, name, id)
	return err
}

func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return err
}

// --- categories ---

type CreateCategoryParams struct {
	ProfileID int64
	Name      string
	Kind      core.CategoryKind
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (core.Category, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (profile_id, name, kind) VALUES (?, ?, ?)`,
		arg.ProfileID, arg.Name, string(arg.Kind))
	if err != nil {
		return core.Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{ID: id, ProfileID: arg.ProfileID, Name: arg.Name, Kind: arg.Kind}, nil
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx,
		`SELECT id, profile_id, name, kind FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.ProfileID, &c.Name, (*string)(&c.Kind))
	return c, mapNoRows(err)
}

func (q *Queries) GetCategoryByName(ctx context.Context, profileID int64, name string) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx,
		`SELECT id, profile_id, name, kind FROM categories WHERE profile_id = ? AND name = ? COLLATE NOCASE`,
		profileID, name).Scan(&c.ID, &c.ProfileID, &c.Name, (*string)(&c.Kind))
	return c, mapNoRows(err)
}

func (q *Queries) ListCategories(ctx context.Context, profileID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, profile_id, name, kind FROM categories WHERE profile_id = ? ORDER BY kind, name`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.ProfileID, &c.Name, (*string)(&c.Kind)); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}

// --- debts ---

type CreateDebtParams struct {
	ProfileID           int64
	Creditor            string
	MonthlyPaymentCents int64
	Months              int
	Kind                core.DebtKind
	CardAccountID       int64
	Sequence            int
}

func (q *Queries) CreateDebt(ctx context.Context, arg CreateDebtParams) (core.Debt, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO debts (profile_id, creditor, monthly_payment_cents, months, status, kind, card_account_id, sequence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ProfileID, arg.Creditor, arg.MonthlyPaymentCents, arg.Months,
		string(core.DebtOpen), string(arg.Kind), nullID(arg.CardAccountID), arg.Sequence)
	if err != nil {
		return core.Debt{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Debt{}, err
	}
	return core.Debt{
		ID:             id,
		ProfileID:      arg.ProfileID,
		Creditor:       arg.Creditor,
		MonthlyPayment: core.Money{Cents: arg.MonthlyPaymentCents},
		Months:         arg.Months,
		Status:         core.DebtOpen,
		Kind:           arg.Kind,
		CardAccountID:  arg.CardAccountID,
		Sequence:       arg.Sequence,
	}, nil
}

const debtColumns = `id, profile_id, creditor, monthly_payment_cents, months, status, kind, card_account_id, sequence`

func scanDebt(row interface{ Scan(...any) error }) (core.Debt, error) {
	var d core.Debt
	var card sql.NullInt64
	err := row.Scan(&d.ID, &d.ProfileID, &d.Creditor, &d.MonthlyPayment.Cents, &d.Months,
		(*string)(&d.Status), (*string)(&d.Kind), &card, &d.Sequence)
	d.CardAccountID = fromNull(card)
	return d, err
}

func (q *Queries) GetDebt(ctx context.Context, id int64) (core.Debt, error) {
	d, err := scanDebt(q.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE id = ?`, id))
	return d, mapNoRows(err)
}

func (q *Queries) ListDebts(ctx context.Context, profileID int64) ([]core.Debt, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE profile_id = ? ORDER BY id`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MaxInstallmentSequence returns the highest sequence number among installment
// debts on the given card, zero when the card has none.
func (q *Queries) MaxInstallmentSequence(ctx context.Context, cardAccountID int64) (int, error) {
	var seq int
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM debts WHERE card_account_id = ? AND kind = ?`,
		cardAccountID, string(core.DebtInstallment)).Scan(&seq)
	return seq, err
}

func (q *Queries) SetDebtMonths(ctx context.Context, id int64, months int) error {
	_, err := q.db.ExecContext(ctx, `UPDATE debts SET months = ? WHERE id = ?`, months, id)
	return err
}

func (q *Queries) SetDebtMonthlyPayment(ctx context.Context, id int64, cents int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE debts SET monthly_payment_cents = ? WHERE id = ?`, cents, id)
	return err
}

func (q *Queries) DeleteDebt(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	return err
}

// --- transactions ---

type CreateTransactionParams struct {
	ProfileID          int64
	AccountID          int64
	CategoryID         int64
	ValueCents         int64
	Date               core.Date
	Description        string
	IsTransfer         bool
	TransferAccountID  int64
	SettlementID       int64
	IsSettled          bool
	BalanceBeforeCents int64
	DebtID             int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (core.Transaction, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (profile_id, account_id, category_id, value_cents, tx_date, description,
		   is_transfer, transfer_account_id, settlement_id, is_settled, balance_before_cents, debt_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ProfileID, arg.AccountID, nullID(arg.CategoryID), arg.ValueCents, arg.Date.ISO(), arg.Description,
		arg.IsTransfer, nullID(arg.TransferAccountID), nullID(arg.SettlementID), arg.IsSettled,
		arg.BalanceBeforeCents, nullID(arg.DebtID))
	if err != nil {
		return core.Transaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:                id,
		ProfileID:         arg.ProfileID,
		AccountID:         arg.AccountID,
		CategoryID:        arg.CategoryID,
		Value:             core.Money{Cents: arg.ValueCents},
		Date:              arg.Date,
		Description:       arg.Description,
		IsTransfer:        arg.IsTransfer,
		TransferAccountID: arg.TransferAccountID,
		SettlementID:      arg.SettlementID,
		IsSettled:         arg.IsSettled,
		BalanceBefore:     core.Money{Cents: arg.BalanceBeforeCents},
		DebtID:            arg.DebtID,
	}, nil
}

const txColumns = `id, profile_id, account_id, category_id, value_cents, tx_date, description,
	is_transfer, transfer_account_id, settlement_id, is_settled, balance_before_cents, debt_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var date string
	var category, transferAcc, settlement, debt sql.NullInt64
	err := row.Scan(&t.ID, &t.ProfileID, &t.AccountID, &category, &t.Value.Cents, &date, &t.Description,
		&t.IsTransfer, &transferAcc, &settlement, &t.IsSettled, &t.BalanceBefore.Cents, &debt)
	if err != nil {
		return t, err
	}
	t.Date, err = core.ParseDate(date)
	t.CategoryID = fromNull(category)
	t.TransferAccountID = fromNull(transferAcc)
	t.SettlementID = fromNull(settlement)
	t.DebtID = fromNull(debt)
	return t, err
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id))
	return t, mapNoRows(err)
}

// LastTransactionOnDate returns the most recently inserted entry for the
// account on the given date. Used to chain balance_before snapshots.
func (q *Queries) LastTransactionOnDate(ctx context.Context, accountID int64, date core.Date) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE account_id = ? AND tx_date = ? ORDER BY id DESC LIMIT 1`,
		accountID, date.ISO()))
	return t, mapNoRows(err)
}

func (q *Queries) ListUnsettledByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return q.listTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE account_id = ? AND is_settled = 0 ORDER BY tx_date, id`,
		accountID)
}

func (q *Queries) ListByMonth(ctx context.Context, profileID int64, year, month int) ([]core.Transaction, error) {
	return q.listTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE profile_id = ? AND tx_date LIKE ? ORDER BY tx_date, id`,
		profileID, monthPrefix(year, month)+"%")
}

func (q *Queries) ListOnDate(ctx context.Context, accountID int64, date core.Date) ([]core.Transaction, error) {
	return q.listTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE account_id = ? AND tx_date = ? ORDER BY id`,
		accountID, date.ISO())
}

func (q *Queries) ListRecent(ctx context.Context, profileID int64, limit int) ([]core.Transaction, error) {
	return q.listTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE profile_id = ? ORDER BY id DESC LIMIT ?`,
		profileID, limit)
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) MarkSettled(ctx context.Context, id int64, settlementID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET is_settled = 1, settlement_id = ? WHERE id = ?`,
		nullID(settlementID), id)
	return err
}

// LinkSettlement records the counterpart reference without flipping
// is_settled. Used to cross-link transfer legs so reversal can find the pair.
func (q *Queries) LinkSettlement(ctx context.Context, id int64, settlementID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET settlement_id = ? WHERE id = ?`,
		nullID(settlementID), id)
	return err
}

// ClearSettlementLinks detaches every transaction whose settlement_id points
// at the given row. Must run before that row is deleted or the foreign key
// blocks the delete.
func (q *Queries) ClearSettlementLinks(ctx context.Context, settlementID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET settlement_id = NULL WHERE settlement_id = ?`,
		settlementID)
	return err
}

// ClearDebtLinks detaches every transaction linked to the given debt.
func (q *Queries) ClearDebtLinks(ctx context.Context, debtID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET debt_id = NULL WHERE debt_id = ?`,
		debtID)
	return err
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

// LastInflow returns the most recent inflow into the account, transfer legs
// included, used to anchor the next expected income date. Money moved in from
// another account restarts the spending window just like a salary deposit.
func (q *Queries) LastInflow(ctx context.Context, accountID int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE account_id = ? AND value_cents > 0
		 ORDER BY tx_date DESC, id DESC LIMIT 1`,
		accountID))
	return t, mapNoRows(err)
}

// SumOutflows totals outflow magnitudes on the account in the half-open date
// range [from, to).
func (q *Queries) SumOutflows(ctx context.Context, accountID int64, from, to core.Date) (int64, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(-value_cents), 0) FROM transactions
		 WHERE account_id = ? AND value_cents < 0 AND tx_date >= ? AND tx_date < ?`,
		accountID, from.ISO(), to.ISO()).Scan(&cents)
	return cents, err
}

type FindTransferCounterpartParams struct {
	ProfileID         int64
	AccountID         int64 // counterpart's account
	TransferAccountID int64 // counterpart points back at the original account
	ValueCents        int64
	Date              core.Date
}

// FindTransferCounterpart locates the opposite leg of a transfer pair.
func (q *Queries) FindTransferCounterpart(ctx context.Context, arg FindTransferCounterpartParams) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE profile_id = ? AND account_id = ? AND transfer_account_id = ?
		   AND value_cents = ? AND tx_date = ? AND is_transfer = 1
		 ORDER BY id DESC LIMIT 1`,
		arg.ProfileID, arg.AccountID, arg.TransferAccountID, arg.ValueCents, arg.Date.ISO()))
	return t, mapNoRows(err)
}

// --- aggregates ---

func monthPrefix(year, month int) string {
	return core.NewDate(year, month, 1).Format("2006-01")
}

// CategoryOutflowTotals sums outflow magnitudes per category for one month.
// Transfers are excluded.
func (q *Queries) CategoryOutflowTotals(ctx context.Context, profileID int64, year, month int) ([]core.CategoryAmount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.name, c.kind, COALESCE(SUM(-t.value_cents), 0) AS total
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.profile_id = ? AND t.tx_date LIKE ? AND t.value_cents < 0 AND t.is_transfer = 0
		 GROUP BY c.id
		 ORDER BY total DESC`,
		profileID, monthPrefix(year, month)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, (*string)(&ca.Kind), &ca.Amount.Cents); err != nil {
			return nil, err
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

type MonthFlows struct {
	InflowCents  int64
	OutflowCents int64
}

// MonthFlows totals inflows and outflow magnitudes for one month, transfers
// excluded.
func (q *Queries) MonthFlows(ctx context.Context, profileID int64, year, month int) (MonthFlows, error) {
	var f MonthFlows
	err := q.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN value_cents > 0 THEN value_cents ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN value_cents < 0 THEN -value_cents ELSE 0 END), 0)
		 FROM transactions
		 WHERE profile_id = ? AND tx_date LIKE ? AND is_transfer = 0`,
		profileID, monthPrefix(year, month)+"%").Scan(&f.InflowCents, &f.OutflowCents)
	return f, err
}

// NetByMonth returns the signed net per calendar month since the given date,
// oldest first, transfers excluded. Months without entries are absent.
func (q *Queries) NetByMonth(ctx context.Context, profileID int64, since core.Date) ([]core.MonthNet, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT substr(tx_date, 1, 4), substr(tx_date, 6, 2), COALESCE(SUM(value_cents), 0)
		 FROM transactions
		 WHERE profile_id = ? AND tx_date >= ? AND is_transfer = 0
		 GROUP BY substr(tx_date, 1, 7)
		 ORDER BY substr(tx_date, 1, 7)`,
		profileID, since.ISO())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.MonthNet
	for rows.Next() {
		var n core.MonthNet
		if err := rows.Scan(&n.Year, &n.Month, &n.Net.Cents); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
