// Package money formats integer cent amounts and derives discount figures.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Upper bounds of the integer money and quantity columns.
const (
	MaxCents    = math.MaxInt32
	MaxQuantity = 100000
)

// FitsCents reports whether v can be stored in a cents column.
func FitsCents(v int) bool {
	return v >= 0 && v <= MaxCents
}

// FromCents converts an amount in cents into a two-place decimal.
func FromCents(cents int) decimal.Decimal {
	return decimal.New(int64(cents), -2)
}

// FormatCents renders cents as a plain decimal string, e.g. 1999 -> "19.99".
func FormatCents(cents int) string {
	return FromCents(cents).StringFixed(2)
}

// DiscountPercent is the percentage saved paying unit instead of base,
// rounded half-up to two places. A non-positive base yields zero.
func DiscountPercent(baseCents, unitCents int) decimal.Decimal {
	if baseCents <= 0 || unitCents >= baseCents {
		return decimal.Zero
	}
	saved := decimal.NewFromInt(int64(baseCents - unitCents))
	return saved.Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(baseCents))).
		Round(2)
}
