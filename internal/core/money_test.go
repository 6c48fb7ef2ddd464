package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"4800", 480000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFormat(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0,00"},
		{5, "0,05"},
		{100, "1,00"},
		{135000, "1.350,00"},
		{480000, "4.800,00"},
		{123456789, "1.234.567,89"},
		{-250050, "-2.500,50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Format(); got != tc.want {
			t.Fatalf("Format(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestSplitInstallments(t *testing.T) {
	cases := []struct {
		total  int64
		months int
		want   int64
	}{
		{30000, 3, 10000},
		{10000, 3, 3333},
		{20000, 3, 6667}, // half-up from 66.666...
		{1, 2, 1},        // 0.005 rounds up
	}
	for _, tc := range cases {
		got, err := SplitInstallments(Money{Cents: tc.total}, tc.months)
		if err != nil {
			t.Fatalf("SplitInstallments(%d, %d): %v", tc.total, tc.months, err)
		}
		if got.Cents != tc.want {
			t.Fatalf("SplitInstallments(%d, %d) = %d, want %d", tc.total, tc.months, got.Cents, tc.want)
		}
	}
	if _, err := SplitInstallments(Money{Cents: 100}, 0); err == nil {
		t.Fatalf("expected error for zero months")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	m := Money{Cents: -150}
	if m.Abs().Cents != 150 {
		t.Fatalf("Abs = %d", m.Abs().Cents)
	}
	if m.Neg().Cents != 150 {
		t.Fatalf("Neg = %d", m.Neg().Cents)
	}
	if got := m.Add(Money{Cents: 200}); got.Cents != 50 {
		t.Fatalf("Add = %d", got.Cents)
	}
}

func TestMoneyDecimalRoundTrip(t *testing.T) {
	m := Money{Cents: 123456}
	if got := FromDecimal(m.Decimal()); got != m {
		t.Fatalf("round trip = %d", got.Cents)
	}
}
