// Package currency holds the display-formatting helpers used by summary
// views: currency symbols and fixed/trimmed decimal rendering.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"AUD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"BRL": "R$",
	"CHF": "CHF ",
	"MXN": "$",
}

// Symbol returns the display symbol for a fiat currency code, falling back
// to the code itself followed by a space.
func Symbol(code string) string {
	if s, ok := symbols[strings.ToUpper(code)]; ok {
		return s
	}
	if code == "" {
		return ""
	}
	return strings.ToUpper(code) + " "
}

// Format renders a decimal string with the given symbol and precision.
// Unparseable values render as zero. With trim set, trailing fractional
// zeros are dropped ("1.500" becomes "1.5").
func Format(value, symbol string, decimals int, trim bool) string {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		d = decimal.Zero
	}
	if decimals < 0 {
		decimals = 2
	}
	rendered := d.StringFixed(int32(decimals))
	if trim && strings.Contains(rendered, ".") {
		rendered = strings.TrimRight(rendered, "0")
		rendered = strings.TrimRight(rendered, ".")
	}
	return symbol + rendered
}

// FormatFiat renders a fiat amount with two decimal places and the symbol
// for the given currency code.
func FormatFiat(value, code string) string {
	return Format(value, Symbol(code), 2, false)
}

// SummaryLabel renders the transaction summary headline, e.g.
// "Buy 0.05 ETH" or "Sell 100 USDC".
func SummaryLabel(action, value, symbol string) string {
	return action + " " + Format(value, "", 8, true) + " " + symbol
}
