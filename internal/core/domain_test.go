package core

import (
	"errors"
	"testing"
)

func TestAccountValidate(t *testing.T) {
	good := Account{Name: "Nubank", Kind: AccountCreditCard, Currency: BRL}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Account{
		{Name: "   ", Kind: AccountBank, Currency: BRL},
		{Name: "x", Kind: "savings", Currency: BRL},
		{Name: "x", Kind: AccountBank, Currency: "GBP"},
	}
	for i, a := range bads {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAccountIsDefault(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"Disponível", true},
		{"disponível", true},
		{"Principal", true},
		{"PRINCIPAL", true},
		{"Nubank", false},
	}
	for _, tc := range cases {
		a := Account{Name: tc.name}
		if got := a.IsDefault(); got != tc.want {
			t.Fatalf("IsDefault(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDebtValidate(t *testing.T) {
	good := Debt{Creditor: "Banco", MonthlyPayment: Money{Cents: 10000}, Months: 12, Kind: DebtPlain}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Debt{Creditor: "", Kind: DebtPlain}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (Debt{Creditor: "x", Kind: "rotating"}).Validate(); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if err := (Debt{Creditor: "x", Kind: DebtPlain, Months: -1}).Validate(); !errors.Is(err, ErrInvalidMonths) {
		t.Fatalf("expected ErrInvalidMonths, got %v", err)
	}
}

func TestDebtTotal(t *testing.T) {
	d := Debt{MonthlyPayment: Money{Cents: 10000}, Months: 3}
	if got := d.Total(); got.Cents != 30000 {
		t.Fatalf("Total = %d, want 30000", got.Cents)
	}
}

func TestDateISO(t *testing.T) {
	d := NewDate(2025, 8, 20)
	if got := d.ISO(); got != "2025-08-20" {
		t.Fatalf("ISO = %q", got)
	}
	back, err := ParseDate("2025-08-20")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v vs %v", back, d)
	}
	if _, err := ParseDate("20/08/2025"); err == nil {
		t.Fatalf("expected error for non ISO input")
	}
}

func TestAddMonthClamped(t *testing.T) {
	cases := []struct {
		in, want Date
	}{
		{NewDate(2025, 1, 15), NewDate(2025, 2, 15)},
		{NewDate(2025, 1, 31), NewDate(2025, 2, 28)},
		{NewDate(2024, 1, 31), NewDate(2024, 2, 29)}, // leap year
		{NewDate(2025, 3, 31), NewDate(2025, 4, 30)},
		{NewDate(2025, 12, 10), NewDate(2026, 1, 10)},
	}
	for _, tc := range cases {
		if got := tc.in.AddMonthClamped(); !got.Equal(tc.want.Time) {
			t.Fatalf("AddMonthClamped(%s) = %s, want %s", tc.in.ISO(), got.ISO(), tc.want.ISO())
		}
	}
}

func TestDaysLeftInMonth(t *testing.T) {
	cases := []struct {
		in   Date
		want int
	}{
		{NewDate(2025, 8, 1), 31},
		{NewDate(2025, 8, 31), 1},
		{NewDate(2025, 2, 28), 1},
		{NewDate(2024, 2, 28), 2},
	}
	for _, tc := range cases {
		if got := tc.in.DaysLeftInMonth(); got != tc.want {
			t.Fatalf("DaysLeftInMonth(%s) = %d, want %d", tc.in.ISO(), got, tc.want)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	a := NewDate(2025, 8, 20)
	b := NewDate(2025, 9, 5)
	if got := a.DaysUntil(b); got != 16 {
		t.Fatalf("DaysUntil = %d, want 16", got)
	}
}
