package valuation

import (
	"github.com/iwvelando/estimate-engine/pkg/constants"
	"github.com/iwvelando/estimate-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Surface weights applied to apartment annex surfaces.
var (
	nonHabitableWeight = decimal.RequireFromString("0.5")
	balconyWeight      = decimal.RequireFromString("0.5")
	terraceWeight      = decimal.RequireFromString("0.33")
	gardenWeight       = decimal.RequireFromString("0.10")
)

// volumeHeightFactor converts a usable surface into a construction volume (m³).
var volumeHeightFactor = decimal.RequireFromString("3.1")

// CalculateComponents itemizes the venal value of a property. The only error
// is an unknown property type; every numeric input below zero counts as zero.
func CalculateComponents(profile PropertyProfile, pricing PricingAssumptions) (Components, error) {
	var c Components
	switch profile.Type {
	case Apartment:
		c = apartmentComponents(profile, pricing)
	case House:
		c = houseComponents(profile, pricing)
	default:
		return Components{}, &InvalidPropertyTypeError{Value: string(profile.Type)}
	}

	for _, item := range c.Items {
		c.Subtotal = c.Subtotal.Add(item.Amount)
	}
	c.VenalValue = mathutil.CeilToRoundingUnit(c.Subtotal)
	return c, nil
}

func apartmentComponents(p PropertyProfile, a PricingAssumptions) Components {
	weighted := mathutil.Decimal(p.LivingSurface).
		Add(mathutil.Decimal(p.NonHabitableSurface).Mul(nonHabitableWeight)).
		Add(mathutil.Decimal(p.BalconySurface).Mul(balconyWeight)).
		Add(mathutil.Decimal(p.TerraceSurface).Mul(terraceWeight)).
		Add(mathutil.Decimal(p.GardenSurface).Mul(gardenWeight))

	c := Components{WeightedSurface: weighted}
	c.Items = append(c.Items, newItem("surface", "Weighted living surface",
		weighted.Mul(mathutil.Decimal(a.UnitPricePerM2)).Mul(depreciationFactor(a.DepreciationRatePct))))

	c.Items = appendNonZero(c.Items, "indoor-parking", "Indoor parking", countTimes(p.IndoorParkingCount, a.IndoorParkingPrice))
	c.Items = appendNonZero(c.Items, "outdoor-parking", "Outdoor parking", countTimes(p.OutdoorParkingCount, a.OutdoorParkingPrice))
	c.Items = appendNonZero(c.Items, "box", "Box", countTimes(p.BoxCount, a.BoxPrice))
	if p.HasCellar {
		c.Items = appendNonZero(c.Items, "cellar", "Cellar", mathutil.Decimal(a.CellarPrice))
	}
	c.Items = appendLineItems(c.Items, "extra", a.ExtraLineItems)
	return c
}

func houseComponents(p PropertyProfile, a PricingAssumptions) Components {
	volume := mathutil.Decimal(p.ManualVolumeOverride)
	if !volume.IsPositive() {
		volume = mathutil.Decimal(p.UsableSurface).Mul(volumeHeightFactor)
	}

	land := mathutil.Decimal(p.LandSurface)
	levels := decimal.NewFromInt(int64(mathutil.MaxInt(1, p.LevelsCount)))
	footprint := mathutil.Decimal(p.LivingSurface).Div(levels)
	improvement := decimal.Max(decimal.Zero, land.Sub(footprint))

	c := Components{ConstructionVolume: volume}
	c.Items = append(c.Items,
		newItem("land", "Land", land.Mul(mathutil.Decimal(a.LandUnitPrice))),
		newItem("construction", "Construction volume",
			volume.Mul(mathutil.Decimal(a.UnitPricePerM3)).Mul(depreciationFactor(a.DepreciationRatePct))),
	)
	c.Items = appendNonZero(c.Items, "outdoor-improvements", "Outdoor improvements",
		improvement.Mul(mathutil.Decimal(a.ImprovementUnitPrice)))
	c.Items = appendLineItems(c.Items, "annex", a.AnnexLineItems)
	return c
}

// depreciationFactor returns 1 - rate/100 with the rate bounded to [0, 100].
func depreciationFactor(ratePct float64) decimal.Decimal {
	rate := decimal.Min(mathutil.Decimal(ratePct), decimal.NewFromFloat(constants.PercentageMultiplier))
	return decimal.NewFromInt(1).Sub(rate.Div(decimal.NewFromFloat(constants.PercentageMultiplier)))
}

func countTimes(count int, price float64) decimal.Decimal {
	return decimal.NewFromInt(int64(mathutil.NonNegativeInt(count))).Mul(mathutil.Decimal(price))
}

func newItem(key, label string, amount decimal.Decimal) Item {
	return Item{Key: key, Label: label, Amount: amount.Round(constants.ItemPrecision)}
}

func appendNonZero(items []Item, key, label string, amount decimal.Decimal) []Item {
	if amount.IsZero() {
		return items
	}
	return append(items, newItem(key, label, amount))
}

func appendLineItems(items []Item, key string, lines []LineItem) []Item {
	for _, line := range lines {
		label := line.Label
		if label == "" {
			label = key
		}
		items = appendNonZero(items, key, label, mathutil.Decimal(line.Amount))
	}
	return items
}
