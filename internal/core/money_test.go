package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		err error
	}{
		{"1", "1", nil},
		{"1.0", "1", nil},
		{"1.23", "1.23", nil},
		{"1,23", "1.23", nil},
		{" 2.50 ", "2.5", nil},
		{"0", "0", nil},
		{"-4.5", "-4.5", nil},
		{"", "", ErrMissingAmount},
		{"   ", "", ErrMissingAmount},
		{"abc", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
		{"12abc", "", ErrInvalidAmount},
		{"1e15", "1000000000000000", nil},
		{"-1e15", "-1000000000000000", nil},
		{"1000000000000000.01", "", ErrInvalidAmount},
		{"1e999999999", "", ErrInvalidAmount},
		{"1e-999999999", "", ErrInvalidAmount},
		{"0.0000000000000000001", "", ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error: %v", tc.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("1234.5"), "USD"); got != "$1,234.50" {
		t.Fatalf("USD format = %q", got)
	}
	if got := FormatAmount(decimal.RequireFromString("12.345"), "XXX_NOPE"); got != "12.35 XXX_NOPE" {
		t.Fatalf("fallback format = %q", got)
	}
}

func TestFormatAmountUsesTablePrecision(t *testing.T) {
	cases := []struct {
		amount string
		code   string
		want   string
	}{
		{"1234.5", "IRR", "1,235 \ufdfc"},
		{"1234.5", "JPY", "\u00a51,235"},
		{"-20.5", "EUR", "-\u20ac20.50"},
	}
	for _, tc := range cases {
		if got := FormatAmount(decimal.RequireFromString(tc.amount), tc.code); got != tc.want {
			t.Fatalf("%s %s = %q, want %q", tc.amount, tc.code, got, tc.want)
		}
	}
}

func TestFormatAmountBeyondInt64(t *testing.T) {
	cases := []struct {
		amount string
		code   string
		want   string
	}{
		{"100000000000000000000", "USD", "$100,000,000,000,000,000,000.00"},
		{"-100000000000000000000", "USD", "-$100,000,000,000,000,000,000.00"},
		{"12345678901234567890123", "IRR", "12,345,678,901,234,567,890,123 \ufdfc"},
	}
	for _, tc := range cases {
		if got := FormatAmount(decimal.RequireFromString(tc.amount), tc.code); got != tc.want {
			t.Fatalf("%s %s = %q, want %q", tc.amount, tc.code, got, tc.want)
		}
	}
}

func TestCheckAmount(t *testing.T) {
	if err := CheckAmount(decimal.New(1, 15)); err != nil {
		t.Fatalf("1e15 should be accepted: %v", err)
	}
	if err := CheckAmount(decimal.New(2, 15)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("2e15 should be rejected, got %v", err)
	}
	if err := CheckAmount(decimal.New(1, 999999999)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("huge exponent should be rejected, got %v", err)
	}
}

func TestCurrencyTable(t *testing.T) {
	all := Currencies()
	if len(all) != 11 {
		t.Fatalf("expected 11 currencies, got %d", len(all))
	}
	if all[0].Code != "USD" {
		t.Fatalf("USD must be first, got %s", all[0].Code)
	}
	c, ok := LookupCurrency("CAD")
	if !ok || c.Symbol != "C$" {
		t.Fatalf("CAD lookup = %+v, %v", c, ok)
	}
	if _, ok := LookupCurrency("BTC"); ok {
		t.Fatal("BTC must not be supported")
	}
	if got := c.Label(); got != "C$ CAD - Canadian Dollar" {
		t.Fatalf("label = %q", got)
	}
}
