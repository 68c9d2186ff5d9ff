// Package format provides display helpers for monetary amounts.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyCode prefixes every formatted amount.
const CurrencyCode = "CHF"

// Placeholder is rendered in place of amounts that could not be computed.
const Placeholder = "—"

// Currency returns a currency string with a code and thousands separators (e.g., "CHF 1'260'000").
// Whole amounts drop their decimals; zero renders as the placeholder.
func Currency(amount decimal.Decimal) string {
	if amount.IsZero() {
		return Placeholder
	}
	return CurrencyCode + " " + NumericCurrency(amount)
}

// NumericCurrency returns a currency string without a code but with separators (e.g., "-1'234.50").
func NumericCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + groupThousands(amount.Abs())
}

func groupThousands(value decimal.Decimal) string {
	formatted := value.StringFixed(2)
	if value.Equal(value.Truncate(0)) {
		formatted = value.StringFixed(0)
	}
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte('\'')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if len(parts) == 2 {
		return intPart + "." + parts[1]
	}
	return intPart
}
