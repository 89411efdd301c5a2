package ledger

import (
	"math/big"
	"testing"
)

func mustAmount(t *testing.T, raw string) Amount {
	t.Helper()
	amount, err := ParseAmount(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return amount
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"3", "3", true},
		{"12.50", "12.5", true},
		{"0.000001", "0.000001", true},
		{" 7 ", "7", true},
		{"0", "0", true},
		{"", "", false},
		{".", "", false},
		{".5", "", false},
		{"-3", "", false},
		{"1e6", "", false},
		{"3,5", "", false},
	}
	for _, tc := range cases {
		amount, err := ParseAmount(tc.raw)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseAmount(%q) error = %v, want ok=%v", tc.raw, err, tc.ok)
		}
		if err == nil && amount.String() != tc.want {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tc.raw, amount, tc.want)
		}
	}
}

func TestBaseUnits(t *testing.T) {
	base, err := mustAmount(t, "12.5").BaseUnits(6)
	if err != nil {
		t.Fatalf("BaseUnits: %v", err)
	}
	if base.Cmp(big.NewInt(12_500_000)) != 0 {
		t.Fatalf("BaseUnits = %s, want 12500000", base)
	}
}

func TestBaseUnitsRejectsExcessPrecision(t *testing.T) {
	if _, err := mustAmount(t, "1.0000001").BaseUnits(6); err == nil {
		t.Fatal("expected precision error for 7 fractional digits with 6 decimals")
	}
}

func TestAmountFromBaseUnitsRoundTrip(t *testing.T) {
	amount := AmountFromBaseUnits(big.NewInt(3_250_000), 6)
	if got := amount.String(); got != "3.25" {
		t.Fatalf("AmountFromBaseUnits = %s, want 3.25", got)
	}
	back, err := amount.BaseUnits(6)
	if err != nil {
		t.Fatalf("BaseUnits: %v", err)
	}
	if back.Cmp(big.NewInt(3_250_000)) != 0 {
		t.Fatalf("round trip = %s, want 3250000", back)
	}
}

func TestAmountArithmetic(t *testing.T) {
	five := mustAmount(t, "5")
	three := mustAmount(t, "3")
	if got := five.Sub(three).String(); got != "2" {
		t.Fatalf("5 - 3 = %s", got)
	}
	if got := five.Add(three).String(); got != "8" {
		t.Fatalf("5 + 3 = %s", got)
	}
	if five.Cmp(three) <= 0 {
		t.Fatal("expected 5 > 3")
	}
	var zero Amount
	if !zero.IsZero() {
		t.Fatal("zero value amount must be zero")
	}
	if zero.String() != "0" {
		t.Fatalf("zero String = %q", zero.String())
	}
}
