// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/estimate-engine/pkg/constants"
	"github.com/shopspring/decimal"
)

// NonNegative returns val, or 0 when val is negative, NaN or infinite.
// Every numeric request input passes through here.
func NonNegative(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
		return 0
	}
	return val
}

// NonNegativeInt returns val, or 0 when val is negative.
func NonNegativeInt(val int) int {
	if val < 0 {
		return 0
	}
	return val
}

// Decimal converts a request float into a non-negative decimal.
func Decimal(val float64) decimal.Decimal {
	return decimal.NewFromFloat(NonNegative(val))
}

// CeilToUnit rounds a value up to the next multiple of unit. Non-positive
// values and units collapse to zero.
func CeilToUnit(val decimal.Decimal, unit int64) decimal.Decimal {
	if unit <= 0 || !val.IsPositive() {
		return decimal.Zero
	}
	u := decimal.NewFromInt(unit)
	return val.Div(u).Ceil().Mul(u)
}

// CeilToRoundingUnit rounds a monetary total up to the next 5 000.
func CeilToRoundingUnit(val decimal.Decimal) decimal.Decimal {
	return CeilToUnit(val, constants.RoundingUnit)
}

// ClampInt bounds val to [lo, hi].
func ClampInt(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// MaxInt returns the larger of two ints
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return value.Div(total).Mul(decimal.NewFromFloat(constants.PercentageMultiplier))
}

// ApplyUplift returns value increased by percentage percent.
func ApplyUplift(value decimal.Decimal, percentage float64) decimal.Decimal {
	factor := decimal.NewFromFloat(percentage).Div(decimal.NewFromFloat(constants.PercentageMultiplier))
	return value.Mul(decimal.NewFromInt(1).Add(factor))
}
