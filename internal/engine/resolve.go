package engine

import (
	"fmt"
	"time"

	"github.com/iwvelando/estimate-engine/internal/entrypoint"
	"github.com/iwvelando/estimate-engine/internal/exposure"
	"github.com/iwvelando/estimate-engine/internal/timeline"
	"github.com/iwvelando/estimate-engine/internal/valuation"
	"github.com/iwvelando/estimate-engine/pkg/datetime"
	"github.com/iwvelando/estimate-engine/pkg/validation"
)

// resolved is a request with every default applied.
type resolved struct {
	profile    valuation.PropertyProfile
	pricing    valuation.PricingAssumptions
	history    *exposure.History
	classifier entrypoint.Input
	schedule   timeline.Request
	warnings   []string
}

func (r *resolved) warn(msg string) {
	if msg != "" {
		r.warnings = append(r.warnings, msg)
	}
}

// resolve applies defaults to req. The only error is an unusable property type.
func (e *Engine) resolve(req ValuationRequest, now time.Time) (resolved, error) {
	var r resolved

	propertyType, err := valuation.ParsePropertyType(req.PropertyType)
	if err != nil {
		return r, err
	}

	r.checkNumbers(req)

	r.profile = valuation.PropertyProfile{
		Type:                 propertyType,
		LivingSurface:        float64(req.LivingSurface),
		NonHabitableSurface:  float64(req.NonHabitableSurface),
		BalconySurface:       float64(req.BalconySurface),
		TerraceSurface:       float64(req.TerraceSurface),
		GardenSurface:        float64(req.GardenSurface),
		LandSurface:          float64(req.LandSurface),
		UsableSurface:        float64(req.UsableSurface),
		LevelsCount:          req.LevelsCount.Count(),
		ManualVolumeOverride: float64(req.ManualVolumeOverride),
		IndoorParkingCount:   req.IndoorParkingCount.Count(),
		OutdoorParkingCount:  req.OutdoorParkingCount.Count(),
		BoxCount:             req.BoxCount.Count(),
		HasCellar:            req.HasCellar,
	}

	capRate := e.cal.CapitalizationRatePct
	if req.CapitalizationRatePct != nil {
		capRate = float64(*req.CapitalizationRatePct)
	}
	r.pricing = valuation.PricingAssumptions{
		UnitPricePerM2:        float64(req.UnitPricePerM2),
		UnitPricePerM3:        float64(req.UnitPricePerM3),
		DepreciationRatePct:   float64(req.DepreciationRatePct),
		IndoorParkingPrice:    float64(req.IndoorParkingPrice),
		OutdoorParkingPrice:   float64(req.OutdoorParkingPrice),
		BoxPrice:              float64(req.BoxPrice),
		CellarPrice:           float64(req.CellarPrice),
		LandUnitPrice:         float64(req.LandUnitPrice),
		ImprovementUnitPrice:  float64(req.ImprovementUnitPrice),
		ExtraLineItems:        lineItems(req.ExtraLineItems),
		AnnexLineItems:        lineItems(req.AnnexLineItems),
		GrossMonthlyRent:      float64(req.GrossMonthlyRent),
		CapitalizationRatePct: capRate,
	}

	r.history = r.resolveHistory(req.DiffusionHistory)

	r.classifier = entrypoint.Input{
		IsHouse:            propertyType == valuation.House,
		SubType:            req.PropertySubType,
		TopFloor:           req.TopFloor,
		LivingSurface:      float64(req.LivingSurface),
		LandSurface:        float64(req.LandSurface),
		Amenities:          req.Amenities,
		WantsDiscretion:    req.SellerIntent.WantsDiscretion,
		LongHorizon:        req.SellerIntent.LongHorizon,
		PricePriority:      req.SellerIntent.PricePriority,
		PreviouslyMarketed: r.history != nil && r.history.PreviouslyMarketed,
	}
	for _, amenity := range req.Amenities {
		if !entrypoint.KnownAmenity(amenity) {
			r.warn(fmt.Sprintf("amenity %q does not contribute to the entry-point score", amenity))
		}
	}

	entry, ok := timeline.ParseEntryPoint(req.EntryPoint)
	if !ok {
		r.warn(validation.EnumWarning("entryPoint", req.EntryPoint, string(entry)))
	}
	start, msg := validation.ParseSchedulingDate(req.SchedulingStartDate, datetime.DateOnly(now))
	r.warn(msg)
	targetMonth, msgs := validation.ParseTargetMonth(req.TargetSaleMonth, start)
	r.warnings = append(r.warnings, msgs...)

	r.schedule = timeline.Request{
		EntryPoint:  entry,
		Start:       start,
		TargetMonth: targetMonth,
		Overrides:   req.PhaseDurationOverrides,
		Transition:  r.resolveTransition(req.BuyerTransition),
		Uplifts:     req.UpliftOverrides,
	}
	if !targetMonth.IsZero() && r.schedule.Transition.ConstraintLevel() >= e.cal.Timeline.Transition.HardLevel {
		r.warn("targetSaleMonth is ignored because the buyer transition sets a hard deadline")
	} else if !targetMonth.IsZero() && hasAllocatedOverride(req.PhaseDurationOverrides) {
		r.warn("off-market, coming-soon and public duration overrides are ignored when targetSaleMonth drives the schedule")
	}
	maxWeeks := e.cal.Timeline.MaxPhaseWeeks
	for _, phase := range req.PhaseDurationOverrides.Exceeding(maxWeeks) {
		r.warn(fmt.Sprintf("phaseDurationOverrides.%s %d is above the %d week maximum, using %d",
			phase, *req.PhaseDurationOverrides.Override(phase), maxWeeks, maxWeeks))
	}

	return r, nil
}

func (r *resolved) checkNumbers(req ValuationRequest) {
	numbers := []struct {
		field string
		value validation.Number
	}{
		{"livingSurface", req.LivingSurface},
		{"nonHabitableSurface", req.NonHabitableSurface},
		{"balconySurface", req.BalconySurface},
		{"terraceSurface", req.TerraceSurface},
		{"gardenSurface", req.GardenSurface},
		{"landSurface", req.LandSurface},
		{"usableSurface", req.UsableSurface},
		{"manualVolumeOverride", req.ManualVolumeOverride},
		{"unitPricePerM2", req.UnitPricePerM2},
		{"unitPricePerM3", req.UnitPricePerM3},
		{"depreciationRatePct", req.DepreciationRatePct},
		{"indoorParkingPrice", req.IndoorParkingPrice},
		{"outdoorParkingPrice", req.OutdoorParkingPrice},
		{"boxPrice", req.BoxPrice},
		{"cellarPrice", req.CellarPrice},
		{"landUnitPrice", req.LandUnitPrice},
		{"improvementUnitPrice", req.ImprovementUnitPrice},
		{"grossMonthlyRent", req.GrossMonthlyRent},
	}
	for _, n := range numbers {
		r.warn(validation.NumericFieldWarning(n.field, float64(n.value)))
	}
	if req.CapitalizationRatePct != nil {
		r.warn(validation.NumericFieldWarning("capitalizationRatePct", float64(*req.CapitalizationRatePct)))
	}
	if req.DepreciationRatePct > 100 {
		r.warn(fmt.Sprintf("depreciationRatePct %g is above 100 and is treated as 100", float64(req.DepreciationRatePct)))
	}

	counts := []struct {
		field string
		value validation.Number
	}{
		{"levelsCount", req.LevelsCount},
		{"indoorParkingCount", req.IndoorParkingCount},
		{"outdoorParkingCount", req.OutdoorParkingCount},
		{"boxCount", req.BoxCount},
	}
	for _, c := range counts {
		r.warn(validation.CountFieldWarning(c.field, c.value))
	}

	for i, item := range req.ExtraLineItems {
		r.warn(validation.NumericFieldWarning(fmt.Sprintf("extraLineItems[%d] (%s)", i, item.Label), float64(item.Amount)))
	}
	for i, item := range req.AnnexLineItems {
		r.warn(validation.NumericFieldWarning(fmt.Sprintf("annexLineItems[%d] (%s)", i, item.Label), float64(item.Amount)))
	}
}

func (r *resolved) resolveHistory(h *DiffusionHistory) *exposure.History {
	if h == nil {
		return nil
	}
	history := &exposure.History{
		PreviouslyMarketed: h.WasPreviouslyMarketed,
		Duration:           exposure.DurationBucket(validation.NormalizeLabel(h.DurationBucket)),
		Intensity:          exposure.Intensity(validation.NormalizeLabel(h.Intensity)),
		DisplayedPrice:     float64(h.PreviouslyDisplayedPrice),
		Channels:           h.ChannelsUsed,
	}
	if !h.WasPreviouslyMarketed {
		return history
	}
	if !exposure.KnownDuration(history.Duration) {
		r.warn(validation.EnumWarning("durationBucket", h.DurationBucket, "the default impact and a 2 week pause"))
	}
	if !exposure.KnownIntensity(history.Intensity) {
		r.warn(validation.EnumWarning("intensity", h.Intensity, "the default impact"))
	}
	r.warn(validation.NumericFieldWarning("previouslyDisplayedPrice", float64(h.PreviouslyDisplayedPrice)))
	return history
}

func (r *resolved) resolveTransition(b *BuyerTransition) timeline.BuyerTransition {
	if b == nil {
		return timeline.BuyerTransition{}
	}
	stage, ok := timeline.ParseProgressStage(b.ProgressStage)
	if !ok && b.HasPendingPurchase {
		r.warn(validation.EnumWarning("progressStage", b.ProgressStage, string(timeline.StageSearch)))
		stage = timeline.StageSearch
	}
	flexibility, ok := timeline.ParseFlexibility(b.Flexibility)
	if !ok {
		r.warn(validation.EnumWarning("flexibility", b.Flexibility, string(flexibility)))
	}
	return timeline.BuyerTransition{
		HasPendingPurchase: b.HasPendingPurchase,
		Stage:              stage,
		Flexibility:        flexibility,
		ToleratesFastSale:  b.ToleratesFastSale,
		ToleratesSlowSale:  b.ToleratesSlowSale,
	}
}

func hasAllocatedOverride(o timeline.Overrides) bool {
	return o.OffMarket != nil || o.ComingSoon != nil || o.Public != nil
}
