// Package quantity renders decimal quantities the way both the on-screen
// tables and the exported reports must: pt-BR separators ("." for thousands,
// "," for decimals), at most 3 fractional digits, trailing zeros trimmed.
//
// The legacy application used a comma for both separators, which no locale
// does; that was a defect, not a convention, and is deliberately not
// reproduced here.
package quantity

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Format renders a quantity with pt-BR separators and appends the unit when
// one is given. Values are rounded to 3 decimal places first.
func Format(value decimal.Decimal, unit string) string {
	v := value.Round(3)

	intPart := v.IntPart()
	out := printer.Sprintf("%d", intPart)
	if intPart == 0 && v.IsNegative() {
		out = "-" + out
	}

	if frac := fractionDigits(v); frac != "" {
		out += "," + frac
	}

	if unit != "" {
		out += " " + unit
	}
	return out
}

// FormatNullable is Format for optional values; a missing value renders as
// "0", never as an error.
func FormatNullable(value *decimal.Decimal, unit string) string {
	if value == nil {
		return Format(decimal.Zero, unit)
	}
	return Format(*value, unit)
}

// Parse reads a string produced by Format back into a decimal, ignoring a
// trailing unit label. It accepts exactly the convention Format emits.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

// fractionDigits returns the fractional digits of v with trailing zeros
// trimmed, empty for whole numbers.
func fractionDigits(v decimal.Decimal) string {
	fixed := v.Abs().StringFixed(3)
	i := strings.IndexByte(fixed, '.')
	if i < 0 {
		return ""
	}
	return strings.TrimRight(fixed[i+1:], "0")
}
