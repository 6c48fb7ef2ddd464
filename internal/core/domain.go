package core

import (
	"errors"
	"strings"
	"time"
)

const (
	AccountBank       AccountKind = "bank"
	AccountCreditCard AccountKind = "credit_card"

	CategoryFixed    CategoryKind = "fixed"
	CategoryVariable CategoryKind = "variable"

	DebtPlain       DebtKind = "plain"
	DebtInstallment DebtKind = "installment"

	DebtOpen DebtStatus = "open"

	BRL Currency = "BRL"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// Default accounts seeded at profile creation. "Disponível" is the spending
// account the daily allowance is projected from.
const (
	DefaultSpendingAccount = "Disponível"
	DefaultMainAccount     = "Principal"
)

type (
	AccountKind  string
	CategoryKind string
	DebtKind     string
	DebtStatus   string
	Currency     string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Profile is the financial identity of one end user, keyed by the
	// external chat identity. At most one profile per external id.
	Profile struct {
		ID            int64
		ExternalID    int64
		Name          string
		EmergencyFund Money
	}

	Account struct {
		ID        int64
		ProfileID int64
		Name      string
		Kind      AccountKind
		Currency  Currency
		Balance   Money
	}

	Category struct {
		ID        int64
		ProfileID int64
		Name      string
		Kind      CategoryKind
	}

	// Transaction is a single signed ledger entry. Value is positive for
	// inflows and negative for outflows. BalanceBefore snapshots the account
	// balance immediately before this entry on its date. Settlement state is
	// explicit: IsSettled plus an optional SettlementID referencing the
	// counterpart entry. DebtID links an installment purchase to the debt it
	// spawned. Zero means unset for all optional references.
	Transaction struct {
		ID                int64
		ProfileID         int64
		AccountID         int64
		CategoryID        int64
		Value             Money
		Date              Date
		Description       string
		IsTransfer        bool
		TransferAccountID int64
		SettlementID      int64
		IsSettled         bool
		BalanceBefore     Money
		DebtID            int64
	}

	// Debt is a recurring obligation tracked independently of the transaction
	// log. Installment debts are generated from card purchases and carry the
	// originating card plus a per-card monotonic sequence. Months reaching
	// zero removes the record; there is no closed-but-retained state.
	Debt struct {
		ID             int64
		ProfileID      int64
		Creditor       string
		MonthlyPayment Money
		Months         int
		Status         DebtStatus
		Kind           DebtKind
		CardAccountID  int64
		Sequence       int
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidMonths   = errors.New("invalid month count")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidKind     = errors.New("invalid kind")
	ErrNotFound        = errors.New("not found")
	ErrAlreadySettled  = errors.New("transaction already settled")
	ErrNonZeroBalance  = errors.New("account balance is not zero")
	ErrSameAccount     = errors.New("origin and destination are the same account")
	ErrInsufficient    = errors.New("insufficient balance")
	ErrReservedName    = errors.New("reserved account name")
	ErrNotCardAccount  = errors.New("account is not a credit card")
	ErrProfileRequired = errors.New("profile not registered")
)

func (k AccountKind) Valid() bool {
	return k == AccountBank || k == AccountCreditCard
}

func (k CategoryKind) Valid() bool {
	return k == CategoryFixed || k == CategoryVariable
}

func (k DebtKind) Valid() bool {
	return k == DebtPlain || k == DebtInstallment
}

func (c Currency) Valid() bool {
	return c == BRL || c == USD || c == EUR
}

// Symbol returns the display prefix for amounts in this currency.
func (c Currency) Symbol() string {
	switch c {
	case USD:
		return "US$"
	case EUR:
		return "€"
	default:
		return "R$"
	}
}

func (a Account) IsCard() bool {
	return a.Kind == AccountCreditCard
}

// IsDefault reports whether the account is one of the two seeded accounts,
// which cannot be removed or renamed away.
func (a Account) IsDefault() bool {
	n := strings.ToLower(a.Name)
	return n == strings.ToLower(DefaultSpendingAccount) || n == strings.ToLower(DefaultMainAccount)
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	if !a.Currency.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Creditor) == "" {
		return ErrEmptyName
	}
	if !d.Kind.Valid() {
		return ErrInvalidKind
	}
	if d.Months < 0 {
		return ErrInvalidMonths
	}
	return nil
}

// Total is the outstanding amount: monthly payment times remaining months.
func (d Debt) Total() Money {
	return Money{Cents: d.MonthlyPayment.Cents * int64(d.Months)}
}

func (t Transaction) IsInflow() bool  { return t.Value.Cents > 0 }
func (t Transaction) IsOutflow() bool { return t.Value.Cents < 0 }

// NewDate creates a date-only value at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today truncates a wall-clock time to its date.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ISO renders the date in the storage format.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// ParseDate parses the storage format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// AddDays returns the date shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonthClamped advances one calendar month, clamping to the last day of
// the target month (Jan 31 becomes Feb 28, not Mar 3).
func (d Date) AddMonthClamped() Date {
	y, m, day := d.Date()
	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfNext := firstOfNext.AddDate(0, 1, -1).Day()
	if day > lastOfNext {
		day = lastOfNext
	}
	return Date{Time: time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, time.UTC)}
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// DaysLeftInMonth counts the days remaining in d's calendar month, including
// d itself. Never less than 1.
func (d Date) DaysLeftInMonth() int {
	y, m, _ := d.Date()
	lastDay := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
	left := lastDay - d.Day() + 1
	if left < 1 {
		left = 1
	}
	return left
}
