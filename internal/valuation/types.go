// Package valuation computes the itemized venal value of a property and
// triangulates it with the rental-yield value into a collateral value and a
// negotiation range.
package valuation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PropertyType selects the valuation formula.
type PropertyType string

const (
	Apartment PropertyType = "apartment"
	House     PropertyType = "house"
)

// InvalidPropertyTypeError is returned when a request carries no property type
// or one that no valuation formula applies to.
type InvalidPropertyTypeError struct {
	Value string
}

func (e *InvalidPropertyTypeError) Error() string {
	if e.Value == "" {
		return "property type is required"
	}
	return fmt.Sprintf("unsupported property type %q (expected %s or %s)", e.Value, Apartment, House)
}

// ParsePropertyType normalizes raw into a PropertyType.
func ParsePropertyType(raw string) (PropertyType, error) {
	switch PropertyType(strings.ToLower(strings.TrimSpace(raw))) {
	case Apartment:
		return Apartment, nil
	case House:
		return House, nil
	}
	return "", &InvalidPropertyTypeError{Value: raw}
}

// LineItem is a caller-supplied extra amount (renovation, annex building, ...).
type LineItem struct {
	Label  string  `json:"label" yaml:"label"`
	Amount float64 `json:"amount" yaml:"amount"`
}

// PropertyProfile holds the physical attributes of a property.
type PropertyProfile struct {
	Type                 PropertyType
	LivingSurface        float64
	NonHabitableSurface  float64
	BalconySurface       float64
	TerraceSurface       float64
	GardenSurface        float64
	LandSurface          float64
	UsableSurface        float64
	LevelsCount          int
	ManualVolumeOverride float64
	IndoorParkingCount   int
	OutdoorParkingCount  int
	BoxCount             int
	HasCellar            bool
}

// PricingAssumptions holds the caller's unit prices and rental context.
type PricingAssumptions struct {
	UnitPricePerM2        float64
	UnitPricePerM3        float64
	DepreciationRatePct   float64
	IndoorParkingPrice    float64
	OutdoorParkingPrice   float64
	BoxPrice              float64
	CellarPrice           float64
	LandUnitPrice         float64
	ImprovementUnitPrice  float64
	ExtraLineItems        []LineItem
	AnnexLineItems        []LineItem
	GrossMonthlyRent      float64
	CapitalizationRatePct float64
}

// Item is one computed component of the venal value.
type Item struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Components is the output of CalculateComponents.
type Components struct {
	WeightedSurface    decimal.Decimal `json:"weightedSurface"`
	ConstructionVolume decimal.Decimal `json:"constructionVolume"`
	Items              []Item          `json:"items"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	VenalValue         decimal.Decimal `json:"venalValue"`
}

// Triangulation is the output of Triangulate.
type Triangulation struct {
	NetMonthlyRent  decimal.Decimal `json:"netMonthlyRent"`
	AnnualNetRent   decimal.Decimal `json:"annualNetRent"`
	YieldValue      decimal.Decimal `json:"yieldValue"`
	CollateralValue decimal.Decimal `json:"collateralValue"`
	NegotiationLow  decimal.Decimal `json:"negotiationRangeLow"`
	NegotiationHigh decimal.Decimal `json:"negotiationRangeHigh"`
}

// Breakdown aggregates components and triangulation for the report.
type Breakdown struct {
	PropertyType       PropertyType    `json:"propertyType"`
	WeightedSurface    decimal.Decimal `json:"weightedSurface"`
	ConstructionVolume decimal.Decimal `json:"constructionVolume"`
	LineItems          []Item          `json:"lineItems"`
	VenalValue         decimal.Decimal `json:"venalValue"`
	YieldValue         decimal.Decimal `json:"yieldValue"`
	CollateralValue    decimal.Decimal `json:"collateralValue"`
	NegotiationLow     decimal.Decimal `json:"negotiationRangeLow"`
	NegotiationHigh    decimal.Decimal `json:"negotiationRangeHigh"`
	NetMonthlyRent     decimal.Decimal `json:"netMonthlyRent"`
	AnnualNetRent      decimal.Decimal `json:"annualNetRent"`
}

// NewBreakdown merges the two valuation stages.
func NewBreakdown(propertyType PropertyType, c Components, t Triangulation) Breakdown {
	return Breakdown{
		PropertyType:       propertyType,
		WeightedSurface:    c.WeightedSurface,
		ConstructionVolume: c.ConstructionVolume,
		LineItems:          c.Items,
		VenalValue:         c.VenalValue,
		YieldValue:         t.YieldValue,
		CollateralValue:    t.CollateralValue,
		NegotiationLow:     t.NegotiationLow,
		NegotiationHigh:    t.NegotiationHigh,
		NetMonthlyRent:     t.NetMonthlyRent,
		AnnualNetRent:      t.AnnualNetRent,
	}
}
