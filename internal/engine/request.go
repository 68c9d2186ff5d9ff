package engine

import (
	"github.com/iwvelando/estimate-engine/internal/timeline"
	"github.com/iwvelando/estimate-engine/internal/valuation"
	"github.com/iwvelando/estimate-engine/pkg/validation"
)

// ValuationRequest is everything the engine needs about one property. Every
// field is optional except PropertyType; missing numbers count as zero and
// unknown labels fall back to documented defaults. Numeric fields also accept
// numeric strings.
type ValuationRequest struct {
	Name            string `json:"name,omitempty"`
	PropertyType    string `json:"propertyType"`
	PropertySubType string `json:"propertySubType,omitempty"`

	LivingSurface        validation.Number `json:"livingSurface"`
	NonHabitableSurface  validation.Number `json:"nonHabitableSurface,omitempty"`
	BalconySurface       validation.Number `json:"balconySurface,omitempty"`
	TerraceSurface       validation.Number `json:"terraceSurface,omitempty"`
	GardenSurface        validation.Number `json:"gardenSurface,omitempty"`
	LandSurface          validation.Number `json:"landSurface,omitempty"`
	UsableSurface        validation.Number `json:"usableSurface,omitempty"`
	LevelsCount          validation.Number `json:"levelsCount,omitempty"`
	ManualVolumeOverride validation.Number `json:"manualVolumeOverride,omitempty"`
	RoomsCount           validation.Number `json:"roomsCount,omitempty"`
	ConstructionYear     validation.Number `json:"constructionYear,omitempty"`
	TopFloor             bool              `json:"topFloor,omitempty"`
	Amenities            []string          `json:"amenities,omitempty"`

	UnitPricePerM2       validation.Number `json:"unitPricePerM2,omitempty"`
	UnitPricePerM3       validation.Number `json:"unitPricePerM3,omitempty"`
	DepreciationRatePct  validation.Number `json:"depreciationRatePct,omitempty"`
	IndoorParkingCount   validation.Number `json:"indoorParkingCount,omitempty"`
	IndoorParkingPrice   validation.Number `json:"indoorParkingPrice,omitempty"`
	OutdoorParkingCount  validation.Number `json:"outdoorParkingCount,omitempty"`
	OutdoorParkingPrice  validation.Number `json:"outdoorParkingPrice,omitempty"`
	BoxCount             validation.Number `json:"boxCount,omitempty"`
	BoxPrice             validation.Number `json:"boxPrice,omitempty"`
	HasCellar            bool              `json:"hasCellar,omitempty"`
	CellarPrice          validation.Number `json:"cellarPrice,omitempty"`
	LandUnitPrice        validation.Number `json:"landUnitPrice,omitempty"`
	ImprovementUnitPrice validation.Number `json:"improvementUnitPrice,omitempty"`
	ExtraLineItems       []LineItem        `json:"extraLineItems,omitempty"`
	AnnexLineItems       []LineItem        `json:"annexLineItems,omitempty"`

	GrossMonthlyRent      validation.Number  `json:"grossMonthlyRent,omitempty"`
	CapitalizationRatePct *validation.Number `json:"capitalizationRatePct,omitempty"`

	SellerIntent     SellerIntent      `json:"sellerIntent"`
	DiffusionHistory *DiffusionHistory `json:"diffusionHistory,omitempty"`
	BuyerTransition  *BuyerTransition  `json:"buyerTransition,omitempty"`

	EntryPoint             string                   `json:"entryPoint,omitempty"`
	SchedulingStartDate    string                   `json:"schedulingStartDate,omitempty"`
	TargetSaleMonth        string                   `json:"targetSaleMonth,omitempty"`
	PhaseDurationOverrides timeline.Overrides       `json:"phaseDurationOverrides"`
	UpliftOverrides        timeline.UpliftOverrides `json:"upliftOverrides"`
}

// LineItem is a free-form valuation adjustment.
type LineItem struct {
	Label  string            `json:"label"`
	Amount validation.Number `json:"amount"`
}

func lineItems(items []LineItem) []valuation.LineItem {
	if items == nil {
		return nil
	}
	out := make([]valuation.LineItem, len(items))
	for i, item := range items {
		out[i] = valuation.LineItem{Label: item.Label, Amount: float64(item.Amount)}
	}
	return out
}

// SellerIntent holds the seller's stated preferences.
type SellerIntent struct {
	WantsDiscretion bool `json:"wantsDiscretion,omitempty"`
	LongHorizon     bool `json:"longHorizon,omitempty"`
	PricePriority   bool `json:"pricePriority,omitempty"`
}

// DiffusionHistory describes earlier marketing of the property.
type DiffusionHistory struct {
	WasPreviouslyMarketed    bool              `json:"wasPreviouslyMarketed"`
	DurationBucket           string            `json:"durationBucket,omitempty"`
	Intensity                string            `json:"intensity,omitempty"`
	PreviouslyDisplayedPrice validation.Number `json:"previouslyDisplayedPrice,omitempty"`
	ChannelsUsed             []string          `json:"channelsUsed,omitempty"`
}

// BuyerTransition describes a purchase the seller depends on.
type BuyerTransition struct {
	HasPendingPurchase bool   `json:"hasPendingPurchase"`
	ProgressStage      string `json:"progressStage,omitempty"`
	Flexibility        string `json:"flexibility,omitempty"`
	ToleratesFastSale  bool   `json:"toleratesFastSale,omitempty"`
	ToleratesSlowSale  bool   `json:"toleratesSlowSale,omitempty"`
}

// Property is a named request in a request file. Inactive properties are
// skipped by ComputeAll.
type Property struct {
	Active           bool `json:"active"`
	ValuationRequest `mapstructure:",squash"`
}
