package core

import "strings"

// CurrencyOption describes one selectable display currency.
type CurrencyOption struct {
	Code     string
	Symbol   string
	Name     string
	Decimals int
}

var currencies = []CurrencyOption{
	{Code: "USD", Symbol: "$", Name: "US Dollar", Decimals: 2},
	{Code: "EUR", Symbol: "€", Name: "Euro", Decimals: 2},
	{Code: "GBP", Symbol: "£", Name: "British Pound", Decimals: 2},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Decimals: 0},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", Decimals: 2},
	{Code: "IRR", Symbol: "﷼", Name: "Iranian Rial", Decimals: 0},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Decimals: 2},
	{Code: "TRY", Symbol: "₺", Name: "Turkish Lira", Decimals: 2},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Decimals: 2},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", Decimals: 2},
	{Code: "MXN", Symbol: "$", Name: "Mexican Peso", Decimals: 2},
}

// Currencies returns the supported currencies in display order.
func Currencies() []CurrencyOption {
	out := make([]CurrencyOption, len(currencies))
	copy(out, currencies)
	return out
}

// LookupCurrency finds a supported currency by its ISO code, ignoring case.
func LookupCurrency(code string) (CurrencyOption, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range currencies {
		if c.Code == code {
			return c, true
		}
	}
	return CurrencyOption{}, false
}

// Label is the selector text, e.g. "$ USD - US Dollar".
func (c CurrencyOption) Label() string {
	return c.Symbol + " " + c.Code + " - " + c.Name
}
