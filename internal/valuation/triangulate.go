package valuation

import (
	"github.com/iwvelando/estimate-engine/pkg/constants"
	"github.com/iwvelando/estimate-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Triangulate derives the yield, collateral and negotiation figures from the
// venal value and the rental context. Collateral weighs venal value twice as
// much as yield value.
func Triangulate(venal decimal.Decimal, grossMonthlyRent, capitalizationRatePct float64) Triangulation {
	if venal.IsNegative() {
		venal = decimal.Zero
	}
	hundred := decimal.NewFromFloat(constants.PercentageMultiplier)

	var t Triangulation
	t.NetMonthlyRent = mathutil.Decimal(grossMonthlyRent).Mul(decimal.NewFromFloat(constants.NetRentFactor))
	t.AnnualNetRent = t.NetMonthlyRent.Mul(decimal.NewFromInt(constants.MonthsPerYear))

	rate := mathutil.Decimal(capitalizationRatePct)
	if rate.IsPositive() {
		t.YieldValue = mathutil.CeilToRoundingUnit(t.AnnualNetRent.Div(rate.Div(hundred)))
	} else {
		t.YieldValue = decimal.Zero
	}

	t.CollateralValue = mathutil.CeilToRoundingUnit(
		venal.Mul(decimal.NewFromInt(2)).Add(t.YieldValue).Div(decimal.NewFromInt(3)))

	spread := decimal.NewFromFloat(constants.NegotiationSpreadPct).Div(hundred)
	one := decimal.NewFromInt(1)
	t.NegotiationLow = mathutil.CeilToRoundingUnit(venal.Mul(one.Sub(spread)))
	t.NegotiationHigh = mathutil.CeilToRoundingUnit(venal.Mul(one.Add(spread)))
	return t
}
