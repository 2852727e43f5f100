// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and formatting them in a display currency.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to an exact decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Only
// numeric parsing is applied; the sign and magnitude are kept as entered.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("")      -> 0, ErrMissingAmount
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
//	ParseAmount("1e999") -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrMissingAmount
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// Amounts are bounded so that sums stay cheap to compute.
const (
	maxAmountExponent = 15
	minAmountExponent = -18
)

var maxAmount = decimal.New(1, maxAmountExponent)

// CheckAmount rejects amounts whose magnitude exceeds 1e15 or whose scale
// is finer than 1e-18.
func CheckAmount(d decimal.Decimal) error {
	if exp := d.Exponent(); exp > maxAmountExponent || exp < minAmountExponent {
		return ErrInvalidAmount
	}
	if d.Abs().GreaterThan(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders amount in the given currency, e.g. "$1,234.50" or
// "¥1,235". Supported currencies use the precision from the currency table.
// Unknown codes fall back to a plain two-decimal number followed by the code.
func FormatAmount(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}
	fraction := cur.Fraction
	if opt, ok := LookupCurrency(code); ok {
		fraction = opt.Decimals
	}
	f := money.NewFormatter(fraction, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)

	minor := amount.Shift(int32(fraction)).Round(0)
	if n := minor.BigInt(); n.IsInt64() {
		return f.Format(n.Int64())
	}
	return formatLarge(f, minor)
}

// formatLarge lays out minor units that do not fit in an int64 the same
// way money.Formatter does.
func formatLarge(f *money.Formatter, minor decimal.Decimal) string {
	digits := minor.Abs().BigInt().String()
	if len(digits) <= f.Fraction {
		digits = strings.Repeat("0", f.Fraction-len(digits)+1) + digits
	}
	if f.Thousand != "" {
		for i := len(digits) - f.Fraction - 3; i > 0; i -= 3 {
			digits = digits[:i] + f.Thousand + digits[i:]
		}
	}
	if f.Fraction > 0 {
		digits = digits[:len(digits)-f.Fraction] + f.Decimal + digits[len(digits)-f.Fraction:]
	}
	out := strings.Replace(f.Template, "1", digits, 1)
	out = strings.Replace(out, "$", f.Grapheme, 1)
	if minor.IsNegative() {
		out = "-" + out
	}
	return out
}
