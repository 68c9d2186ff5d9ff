package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/iwvelando/estimate-engine/internal/exposure"
	"github.com/iwvelando/estimate-engine/internal/timeline"
	"github.com/iwvelando/estimate-engine/internal/valuation"
	"github.com/iwvelando/estimate-engine/pkg/datetime"
	"github.com/iwvelando/estimate-engine/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = datetime.MustParseTime(datetime.DateLayout, "2024-01-01")

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(zap.NewNop(), DefaultCalibration())
	require.NoError(t, err)
	return e
}

func apartmentRequest() ValuationRequest {
	return ValuationRequest{
		Name:           "Scenario A",
		PropertyType:   "apartment",
		LivingSurface:  100,
		BalconySurface: 10,
		UnitPricePerM2: 12000,
	}
}

func houseRequest() ValuationRequest {
	return ValuationRequest{
		Name:                 "Scenario B",
		PropertyType:         "house",
		LivingSurface:        200,
		LevelsCount:          2,
		LandSurface:          1000,
		LandUnitPrice:        1000,
		ManualVolumeOverride: 400,
		UnitPricePerM3:       1000,
		DiffusionHistory: &DiffusionHistory{
			WasPreviouslyMarketed:    true,
			DurationBucket:           "6-12m",
			Intensity:                "massive",
			PreviouslyDisplayedPrice: 2000000,
			ChannelsUsed:             []string{"Homegate"},
		},
		EntryPoint:          "off-market",
		SchedulingStartDate: "2024-01-01",
	}
}

func decimalOf(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestNewRejectsInvalidCalibration(t *testing.T) {
	cal := DefaultCalibration()
	cal.Timeline.Bands = nil
	_, err := New(nil, cal)
	require.Error(t, err)

	cal = DefaultCalibration()
	cal.CapitalizationRatePct = -1
	_, err = New(nil, cal)
	require.Error(t, err)
}

func TestComputeApartmentWithoutHistory(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.ComputeWithFixedTime(apartmentRequest(), fixedNow)
	require.NoError(t, err)

	assert.True(t, res.ValueBreakdown.WeightedSurface.Equal(decimalOf(105)), "weighted surface %s", res.ValueBreakdown.WeightedSurface)
	assert.True(t, res.ValueBreakdown.VenalValue.Equal(decimalOf(1260000)), "venal value %s", res.ValueBreakdown.VenalValue)
	assert.Equal(t, 100, res.ExposureCapital.Score)
	assert.Empty(t, res.ExposureCapital.Alerts)
	assert.Equal(t, 0, res.ExposureCapital.RecalibrationPauseWeeks)
	assert.False(t, res.IsPremiumRegister)
	assert.Empty(t, res.Warnings)

	// no entry point means public, scheduled from the injected date
	plan := res.TimelinePlan
	assert.Equal(t, timeline.EntryPublic, plan.EntryPoint)
	assert.Equal(t, timeline.ModeFixed, plan.Mode)
	require.Len(t, plan.Phases, 2)
	assert.Equal(t, "2024-03-18", plan.EstimatedSaleDate.Format(datetime.DateLayout))
}

func TestComputeHouseWithBurnedHistory(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.ComputeWithFixedTime(houseRequest(), fixedNow)
	require.NoError(t, err)

	require.True(t, res.ValueBreakdown.VenalValue.Equal(decimalOf(1400000)), "venal value %s", res.ValueBreakdown.VenalValue)

	capital := res.ExposureCapital
	assert.Equal(t, 50, capital.DurationImpact)
	assert.Equal(t, 30, capital.IntensityImpact)
	assert.Equal(t, 10, capital.Score)
	assert.Equal(t, 4, capital.RecalibrationPauseWeeks)
	assert.Equal(t, 42.9, capital.PriceGapPct)

	var codes []string
	for _, a := range capital.Alerts {
		codes = append(codes, a.Code)
	}
	assert.Equal(t, []string{
		exposure.AlertPauseRecommended,
		exposure.AlertRefreshMaterials,
		exposure.AlertPriceGap,
		exposure.AlertChannelsUsed,
	}, codes)
	assert.Equal(t, exposure.SeverityCritical, capital.Alerts[0].Severity)
	assert.Equal(t, exposure.SeverityWarning, capital.Alerts[2].Severity)

	// the pause lengthens preparation to five weeks
	expectedEnds := []string{"2024-02-05", "2024-02-26", "2024-03-11", "2024-05-20"}
	plan := res.TimelinePlan
	require.Len(t, plan.Phases, len(expectedEnds))
	for i, end := range expectedEnds {
		assert.Equal(t, end, plan.Phases[i].EndDate.Format(datetime.DateLayout), "phase %s", plan.Phases[i].Name)
	}
	assert.Equal(t, "2024-05-20", plan.EstimatedSaleDate.Format(datetime.DateLayout))
	assert.Equal(t, 5, plan.Phases[0].DurationWeeks)
}

func TestComputeTargetMonth(t *testing.T) {
	e := newTestEngine(t)
	req := apartmentRequest()
	req.EntryPoint = "off-market"
	req.SchedulingStartDate = "2024-01-01"
	req.TargetSaleMonth = "2024-06"

	res, err := e.ComputeWithFixedTime(req, fixedNow)
	require.NoError(t, err)

	plan := res.TimelinePlan
	require.Equal(t, timeline.ModeTarget, plan.Mode)
	assert.Equal(t, 0, plan.ConstraintLevel)
	assert.Equal(t, 25, plan.TargetWeeks)

	var weeks []int
	sum := 0
	for _, ph := range plan.Phases {
		weeks = append(weeks, ph.DurationWeeks)
		sum += ph.DurationWeeks
	}
	assert.Equal(t, []int{1, 8, 3, 13}, weeks)
	assert.Equal(t, plan.TargetWeeks, sum)
}

func TestComputeTargetsAndRoundingInvariant(t *testing.T) {
	e := newTestEngine(t)
	unit := decimalOf(5000)

	for living := validation.Number(37); living < 400; living += 23.7 {
		req := apartmentRequest()
		req.LivingSurface = living
		req.TerraceSurface = living / 7
		req.UnitPricePerM2 = 9876
		req.GrossMonthlyRent = living * 31.3
		req.SchedulingStartDate = "2024-01-01"

		res, err := e.ComputeWithFixedTime(req, fixedNow)
		require.NoError(t, err)

		b := res.ValueBreakdown
		values := []decimal.Decimal{b.VenalValue, b.YieldValue, b.CollateralValue, b.NegotiationLow, b.NegotiationHigh}
		for _, target := range res.TimelinePlan.Targets {
			values = append(values, target.TargetValue)
		}
		for _, v := range values {
			assert.False(t, v.IsNegative(), "negative value %s", v)
			assert.True(t, v.Mod(unit).IsZero(), "value %s is not a multiple of 5000", v)
		}
		assert.True(t, b.NegotiationLow.LessThanOrEqual(b.NegotiationHigh))
		require.Len(t, res.TimelinePlan.Targets, 3)
	}
}

func TestComputeDeterminism(t *testing.T) {
	e := newTestEngine(t)
	req := houseRequest()
	req.TargetSaleMonth = "2024-09"
	req.Amenities = []string{"pool", "lake view"}

	first, err := e.ComputeWithFixedTime(req, fixedNow)
	require.NoError(t, err)
	second, err := e.ComputeWithFixedTime(req, fixedNow)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestComputeInvalidPropertyType(t *testing.T) {
	e := newTestEngine(t)

	for _, propertyType := range []string{"", "castle"} {
		req := apartmentRequest()
		req.PropertyType = propertyType

		_, err := e.ComputeWithFixedTime(req, fixedNow)
		var typeErr *valuation.InvalidPropertyTypeError
		require.True(t, errors.As(err, &typeErr), "expected InvalidPropertyTypeError, got %v", err)
		assert.Equal(t, propertyType, typeErr.Value)
	}
}

func TestComputeDegradesMalformedInputs(t *testing.T) {
	e := newTestEngine(t)
	negativeRate := validation.Number(-3)
	req := ValuationRequest{
		PropertyType:          "Apartment",
		LivingSurface:         -50,
		UnitPricePerM2:        10000,
		BoxCount:              -1,
		CapitalizationRatePct: &negativeRate,
		GrossMonthlyRent:      2500,
		EntryPoint:            "billboard",
		SchedulingStartDate:   "next week",
		TargetSaleMonth:       "soon",
		DiffusionHistory: &DiffusionHistory{
			WasPreviouslyMarketed: true,
			DurationBucket:        "forever",
			Intensity:             "loud",
		},
		BuyerTransition: &BuyerTransition{
			HasPendingPurchase: true,
			ProgressStage:      "dreaming",
			Flexibility:        "rigid",
		},
		Amenities: []string{"moat"},
	}

	res, err := e.ComputeWithFixedTime(req, fixedNow)
	require.NoError(t, err)

	assert.True(t, res.ValueBreakdown.VenalValue.IsZero())
	assert.True(t, res.ValueBreakdown.YieldValue.IsZero())
	assert.Equal(t, 70, res.ExposureCapital.Score)
	assert.Equal(t, timeline.EntryPublic, res.TimelinePlan.EntryPoint)
	assert.Equal(t, timeline.ModeFixed, res.TimelinePlan.Mode)
	assert.Equal(t, 1, res.TimelinePlan.ConstraintLevel)
	assert.Equal(t, "2024-01-01", res.TimelinePlan.StartDate.Format(datetime.DateLayout))

	// living surface, box count, capitalization rate, entry point, start date,
	// target month, duration bucket, intensity, stage, flexibility, amenity
	assert.Len(t, res.Warnings, 11, "warnings: %v", res.Warnings)
}

func TestComputeAcceptsNumericStrings(t *testing.T) {
	e := newTestEngine(t)
	body := `{
		"propertyType": "apartment",
		"livingSurface": "100",
		"balconySurface": 10,
		"unitPricePerM2": "12000",
		"indoorParkingCount": 1.5,
		"indoorParkingPrice": "30000",
		"grossMonthlyRent": "abc",
		"capitalizationRatePct": "2.5",
		"extraLineItems": [{"label": "Renovation", "amount": "not a number"}],
		"diffusionHistory": {"wasPreviouslyMarketed": true, "durationBucket": "1-3m", "intensity": "discreet", "previouslyDisplayedPrice": "1 400 000"}
	}`
	var req ValuationRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	res, err := e.ComputeWithFixedTime(req, fixedNow)
	require.NoError(t, err)

	// 105 m2 at 12000 plus one indoor parking at 30000
	assert.True(t, res.ValueBreakdown.VenalValue.Equal(decimalOf(1290000)), "venal value %s", res.ValueBreakdown.VenalValue)
	assert.True(t, res.ValueBreakdown.YieldValue.IsZero())
	assert.ElementsMatch(t, []string{
		"grossMonthlyRent is not a finite number and is treated as 0",
		"indoorParkingCount 1.5 is not a whole number, using 1",
		"extraLineItems[0] (Renovation) is not a finite number and is treated as 0",
		"previouslyDisplayedPrice is not a finite number and is treated as 0",
	}, res.Warnings)
}

func TestComputeCapsPhaseOverrides(t *testing.T) {
	e := newTestEngine(t)
	req := apartmentRequest()
	req.SchedulingStartDate = "2024-01-01"
	huge := 1 << 50
	req.PhaseDurationOverrides = timeline.Overrides{Public: &huge}

	res, err := e.ComputeWithFixedTime(req, fixedNow)
	require.NoError(t, err)

	maxWeeks := e.Calibration().Timeline.MaxPhaseWeeks
	public, ok := res.TimelinePlan.Phase(timeline.PhasePublic)
	require.True(t, ok)
	assert.Equal(t, maxWeeks, public.DurationWeeks)
	for _, ph := range res.TimelinePlan.Phases {
		assert.False(t, ph.EndDate.Before(ph.StartDate), "phase %s ends before it starts", ph.Name)
	}
	assert.True(t, res.TimelinePlan.EstimatedSaleDate.After(res.TimelinePlan.StartDate))
	assert.Contains(t, res.Warnings, "phaseDurationOverrides.public 1125899906842624 is above the 104 week maximum, using 104")
}

func TestComputeHardDeadlineIgnoresTargetMonth(t *testing.T) {
	e := newTestEngine(t)
	req := apartmentRequest()
	req.EntryPoint = "off-market"
	req.TargetSaleMonth = "2024-12"
	req.BuyerTransition = &BuyerTransition{HasPendingPurchase: true, ProgressStage: "notarization-scheduled"}

	res, err := e.ComputeWithFixedTime(req, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, timeline.ModeFixed, res.TimelinePlan.Mode)
	assert.Equal(t, 4, res.TimelinePlan.ConstraintLevel)
	assert.Contains(t, res.Warnings, "targetSaleMonth is ignored because the buyer transition sets a hard deadline")
}

func TestComputePremiumRegister(t *testing.T) {
	e := newTestEngine(t)
	req := apartmentRequest()
	req.PropertySubType = "penthouse"
	req.TopFloor = true
	req.Amenities = []string{"Lake view", "concierge"}
	req.SellerIntent = SellerIntent{WantsDiscretion: true}

	res, err := e.ComputeWithFixedTime(req, fixedNow)
	require.NoError(t, err)

	// 15 + 8 + 10 + 5 + 12
	assert.Equal(t, 50, res.EntryPoint.Score)
	assert.True(t, res.IsPremiumRegister)
	assert.True(t, res.ValueBreakdown.VenalValue.Equal(decimalOf(1260000)), "classification never changes the valuation")
}

func TestValidateRequest(t *testing.T) {
	e := newTestEngine(t)

	warnings, err := e.ValidateRequest(apartmentRequest(), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	req := apartmentRequest()
	req.TargetSaleMonth = "2023-06"
	offMarket := 4
	req.PhaseDurationOverrides = timeline.Overrides{OffMarket: &offMarket}
	warnings, err = e.ValidateRequest(req, fixedNow)
	require.NoError(t, err)
	assert.Len(t, warnings, 2, "warnings: %v", warnings)

	req.PropertyType = "boat"
	_, err = e.ValidateRequest(req, fixedNow)
	require.Error(t, err)
}

func TestComputeAll(t *testing.T) {
	e := newTestEngine(t)
	properties := []Property{
		{Active: true, ValuationRequest: apartmentRequest()},
		{Active: false, ValuationRequest: ValuationRequest{Name: "skipped", PropertyType: "castle"}},
		{Active: true, ValuationRequest: houseRequest()},
	}

	results, err := e.ComputeAll(properties, fixedNow)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Scenario A", results[0].Name)
	assert.Equal(t, "Scenario B", results[1].Name)

	properties[1].Active = true
	results, err = e.ComputeAll(properties, fixedNow)
	require.Error(t, err)
	assert.Len(t, results, 1)
	assert.Contains(t, err.Error(), "skipped")
}

func TestComputeUsesWallClockByDefault(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Compute(apartmentRequest())
	require.NoError(t, err)

	start := res.TimelinePlan.StartDate
	assert.Equal(t, time.Monday, start.Weekday())
	assert.False(t, start.Before(datetime.DateOnly(time.Now())))
}
