package timeline

import (
	"testing"
	"time"

	"github.com/iwvelando/estimate-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

func date(s string) time.Time {
	return datetime.MustParseTime(datetime.DateLayout, s)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestScheduleFixedWithPause(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	plan := s.Schedule(Request{
		EntryPoint: EntryOffMarket,
		Start:      date("2024-01-01"),
		PauseWeeks: 4,
	})

	if plan.Mode != ModeFixed {
		t.Fatalf("Mode = %s, expected %s", plan.Mode, ModeFixed)
	}
	expected := []struct {
		name  PhaseName
		weeks int
		end   string
	}{
		{PhasePreparation, 5, "2024-02-05"},
		{PhaseOffMarket, 3, "2024-02-26"},
		{PhaseComingSoon, 2, "2024-03-11"},
		{PhasePublic, 10, "2024-05-20"},
	}
	if len(plan.Phases) != len(expected) {
		t.Fatalf("expected %d phases, got %+v", len(expected), plan.Phases)
	}
	for i, want := range expected {
		got := plan.Phases[i]
		if got.Name != want.name || got.DurationWeeks != want.weeks || got.EndDate.Format(datetime.DateLayout) != want.end {
			t.Errorf("phase %d = %s %d weeks ending %s, expected %s %d weeks ending %s",
				i, got.Name, got.DurationWeeks, got.EndDate.Format(datetime.DateLayout), want.name, want.weeks, want.end)
		}
	}
	if plan.EstimatedSaleDate.Format(datetime.DateLayout) != "2024-05-20" {
		t.Errorf("EstimatedSaleDate = %s, expected 2024-05-20", plan.EstimatedSaleDate.Format(datetime.DateLayout))
	}
	if plan.TotalWeeks != 20 {
		t.Errorf("TotalWeeks = %d, expected 20", plan.TotalWeeks)
	}
	if len(plan.Adjustments) != 1 {
		t.Errorf("expected one adjustment for the pause, got %v", plan.Adjustments)
	}
}

func TestScheduleTargetMode(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	plan := s.Schedule(Request{
		EntryPoint:  EntryOffMarket,
		Start:       date("2024-01-01"),
		TargetMonth: date("2024-06-01"),
	})

	if plan.Mode != ModeTarget {
		t.Fatalf("Mode = %s, expected %s", plan.Mode, ModeTarget)
	}
	if plan.TargetWeeks != 25 {
		t.Fatalf("TargetWeeks = %d, expected 25", plan.TargetWeeks)
	}
	// remaining 24 falls in the 20-30 band: floor(0.5 × (24 - 4 - 3)) = 8
	expected := map[PhaseName]int{PhasePreparation: 1, PhaseOffMarket: 8, PhaseComingSoon: 3, PhasePublic: 13}
	for name, weeks := range expected {
		ph, ok := plan.Phase(name)
		if !ok || ph.DurationWeeks != weeks {
			t.Errorf("phase %s = %+v, expected %d weeks", name, ph, weeks)
		}
	}
	if plan.TotalWeeks != plan.TargetWeeks {
		t.Errorf("TotalWeeks = %d, expected %d", plan.TotalWeeks, plan.TargetWeeks)
	}
}

func TestScheduleTargetBands(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		expectedOff    int
		expectedComing int
		expectedPublic int
		exactSum       bool
	}{
		// public 3 is raised to its floor of 4
		{"Below six", 6, 1, 1, 4, false},
		{"Six to twelve", 10, 2, 2, 5, true},
		// floor(0.4 × (15 - 4 - 2)) = 3
		{"Twelve to twenty", 16, 3, 2, 10, true},
		// floor(0.4 × (19 - 6)) = 5
		{"Twelve to twenty upper", 20, 5, 2, 12, true},
		// floor(0.55 × (35 - 7)) = 15
		{"Thirty to forty", 36, 15, 3, 17, true},
		{"Forty and over", 60, 20, 4, 35, true},
	}

	s := NewScheduler(DefaultCalibration())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := s.allocate(tt.total, 1, EntryOffMarket).floor(s.cal.Minimums)
			if d.OffMarket != tt.expectedOff || d.ComingSoon != tt.expectedComing || d.Public != tt.expectedPublic {
				t.Errorf("allocate(%d) = %+v, expected off %d coming %d public %d",
					tt.total, d, tt.expectedOff, tt.expectedComing, tt.expectedPublic)
			}
			sum := d.Preparation + d.OffMarket + d.ComingSoon + d.Public
			if tt.exactSum && sum != tt.total {
				t.Errorf("durations sum to %d, expected %d", sum, tt.total)
			}
		})
	}
}

func TestScheduleTargetCaps(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	// remaining 29: floor(0.5 × 22) = 11, under the cap of 12
	if d := s.allocate(30, 1, EntryOffMarket); d.OffMarket != 11 {
		t.Errorf("allocate(30) off-market = %d, expected 11", d.OffMarket)
	}
	// remaining 39: floor(0.55 × 32) = 17, under the cap of 20
	if d := s.allocate(40, 1, EntryOffMarket); d.OffMarket != 17 {
		t.Errorf("allocate(40) off-market = %d, expected 17", d.OffMarket)
	}

	cal := DefaultCalibration()
	cal.Bands[3].OffMarketCap = 5
	s = NewScheduler(cal)
	if d := s.allocate(25, 1, EntryOffMarket); d.OffMarket != 5 {
		t.Errorf("capped off-market = %d, expected 5", d.OffMarket)
	}
}

func TestScheduleTargetSkippedPhasesFoldIntoPublic(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	tests := []struct {
		entry       EntryPoint
		phases      int
		publicWeeks int
	}{
		{EntryOffMarket, 4, 13},
		{EntryComingSoon, 3, 21},
		{EntryPublic, 2, 24},
	}

	for _, tt := range tests {
		t.Run(string(tt.entry), func(t *testing.T) {
			plan := s.Schedule(Request{EntryPoint: tt.entry, Start: date("2024-01-01"), TargetMonth: date("2024-06-01")})
			if len(plan.Phases) != tt.phases {
				t.Fatalf("expected %d phases, got %+v", tt.phases, plan.Phases)
			}
			pub, _ := plan.Phase(PhasePublic)
			if pub.DurationWeeks != tt.publicWeeks {
				t.Errorf("public = %d weeks, expected %d", pub.DurationWeeks, tt.publicWeeks)
			}
			if plan.TotalWeeks != 25 {
				t.Errorf("TotalWeeks = %d, expected 25", plan.TotalWeeks)
			}
		})
	}
}

func TestScheduleTargetMinimumWeeks(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	plan := s.Schedule(Request{EntryPoint: EntryPublic, Start: date("2024-01-01"), TargetMonth: date("2024-01-01")})
	if plan.TargetWeeks != 6 {
		t.Errorf("TargetWeeks = %d, expected the minimum of 6", plan.TargetWeeks)
	}

	// a pause longer than the window leaves the floors in charge
	plan = s.Schedule(Request{EntryPoint: EntryOffMarket, Start: date("2024-01-01"), TargetMonth: date("2024-02-01"), PauseWeeks: 5})
	for _, ph := range plan.Phases {
		if ph.DurationWeeks < s.cal.Minimums.Weeks(ph.Name) {
			t.Errorf("phase %s below its minimum: %d", ph.Name, ph.DurationWeeks)
		}
	}
	if prep, _ := plan.Phase(PhasePreparation); prep.DurationWeeks != 6 {
		t.Errorf("preparation = %d weeks, expected 6", prep.DurationWeeks)
	}
}

func TestScheduleHardConstraintBypassesTarget(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	plan := s.Schedule(Request{
		EntryPoint:  EntryOffMarket,
		Start:       date("2024-01-01"),
		TargetMonth: date("2024-12-01"),
		Transition: BuyerTransition{
			HasPendingPurchase: true,
			Stage:              StageNotarizationScheduled,
		},
	})

	if plan.Mode != ModeFixed {
		t.Fatalf("Mode = %s, expected %s", plan.Mode, ModeFixed)
	}
	if plan.ConstraintLevel != 4 {
		t.Errorf("ConstraintLevel = %d, expected 4", plan.ConstraintLevel)
	}
	if off, _ := plan.Phase(PhaseOffMarket); off.DurationWeeks != 1 {
		t.Errorf("off-market = %d weeks, expected 1", off.DurationWeeks)
	}
}

func TestScheduleTransitionAdjustments(t *testing.T) {
	tests := []struct {
		name           string
		transition     BuyerTransition
		expectedOff    int
		expectedComing int
	}{
		{
			name:           "No pending purchase",
			transition:     BuyerTransition{ToleratesFastSale: true},
			expectedOff:    3,
			expectedComing: 2,
		},
		{
			name:           "Hard deadline",
			transition:     BuyerTransition{HasPendingPurchase: true, Stage: StageCompromiseSigned, Flexibility: FlexibilityLow},
			expectedOff:    2,
			expectedComing: 1,
		},
		{
			name:           "Hard deadline with medium flexibility",
			transition:     BuyerTransition{HasPendingPurchase: true, Stage: StageNotarizationScheduled, Flexibility: FlexibilityMedium},
			expectedOff:    1,
			expectedComing: 2,
		},
		{
			name:           "Fast sale tolerated at level three",
			transition:     BuyerTransition{HasPendingPurchase: true, Stage: StageCompromiseSigned, ToleratesFastSale: true},
			expectedOff:    2,
			expectedComing: 2,
		},
		{
			name:           "Fast sale not tolerated at level three",
			transition:     BuyerTransition{HasPendingPurchase: true, Stage: StageCompromiseSigned},
			expectedOff:    3,
			expectedComing: 2,
		},
		{
			name:           "Slow sale tolerated at level one",
			transition:     BuyerTransition{HasPendingPurchase: true, Stage: StageSearch, ToleratesSlowSale: true},
			expectedOff:    4,
			expectedComing: 2,
		},
		{
			name:           "Slow sale at level two has no effect",
			transition:     BuyerTransition{HasPendingPurchase: true, Stage: StageOfferDeposited, ToleratesSlowSale: true},
			expectedOff:    3,
			expectedComing: 2,
		},
	}

	s := NewScheduler(DefaultCalibration())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := s.Schedule(Request{EntryPoint: EntryOffMarket, Start: date("2024-01-01"), Transition: tt.transition})
			off, _ := plan.Phase(PhaseOffMarket)
			coming, _ := plan.Phase(PhaseComingSoon)
			if off.DurationWeeks != tt.expectedOff || coming.DurationWeeks != tt.expectedComing {
				t.Errorf("off-market %d, coming-soon %d, expected %d and %d",
					off.DurationWeeks, coming.DurationWeeks, tt.expectedOff, tt.expectedComing)
			}
		})
	}
}

func TestScheduleOverridesAndFloors(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	plan := s.Schedule(Request{
		EntryPoint: EntryOffMarket,
		Start:      date("2024-01-01"),
		Overrides: Overrides{
			Preparation: intPtr(0),
			OffMarket:   intPtr(6),
			ComingSoon:  intPtr(-3),
			Public:      intPtr(2),
		},
	})

	expected := map[PhaseName]int{PhasePreparation: 1, PhaseOffMarket: 6, PhaseComingSoon: 1, PhasePublic: 4}
	for name, weeks := range expected {
		if ph, _ := plan.Phase(name); ph.DurationWeeks != weeks {
			t.Errorf("phase %s = %d weeks, expected %d", name, ph.DurationWeeks, weeks)
		}
	}
}

func TestScheduleOverridesCappedAtMaximum(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	plan := s.Schedule(Request{
		EntryPoint: EntryPublic,
		Start:      date("2024-01-01"),
		Overrides:  Overrides{Preparation: intPtr(1 << 40), Public: intPtr(1 << 50)},
		PauseWeeks: 1 << 45,
	})

	// preparation 104 + pause 104
	expected := map[PhaseName]int{PhasePreparation: 208, PhasePublic: 104}
	for name, weeks := range expected {
		if ph, _ := plan.Phase(name); ph.DurationWeeks != weeks {
			t.Errorf("phase %s = %d weeks, expected %d", name, ph.DurationWeeks, weeks)
		}
	}
	for _, ph := range plan.Phases {
		if !ph.EndDate.After(ph.StartDate) {
			t.Errorf("phase %s ends %s before it starts %s", ph.Name, ph.EndDate, ph.StartDate)
		}
	}
	if plan.EstimatedSaleDate.Format(datetime.DateLayout) != "2029-12-24" {
		t.Errorf("EstimatedSaleDate = %s, expected 2029-12-24", plan.EstimatedSaleDate.Format(datetime.DateLayout))
	}
}

func TestScheduleEntryPointsAndMonotonicity(t *testing.T) {
	tests := []struct {
		entry    EntryPoint
		expected []PhaseName
		saleDate string
	}{
		{EntryOffMarket, []PhaseName{PhasePreparation, PhaseOffMarket, PhaseComingSoon, PhasePublic}, "2024-04-29"},
		{EntryComingSoon, []PhaseName{PhasePreparation, PhaseComingSoon, PhasePublic}, "2024-04-08"},
		{EntryPublic, []PhaseName{PhasePreparation, PhasePublic}, "2024-03-25"},
		{"billboard", []PhaseName{PhasePreparation, PhasePublic}, "2024-03-25"},
	}

	s := NewScheduler(DefaultCalibration())
	for _, tt := range tests {
		t.Run(string(tt.entry), func(t *testing.T) {
			// Wednesday start moves to the following Monday
			plan := s.Schedule(Request{EntryPoint: tt.entry, Start: date("2024-01-03")})
			if plan.StartDate.Format(datetime.DateLayout) != "2024-01-08" {
				t.Errorf("StartDate = %s, expected 2024-01-08", plan.StartDate.Format(datetime.DateLayout))
			}
			if len(plan.Phases) != len(tt.expected) {
				t.Fatalf("expected %d phases, got %+v", len(tt.expected), plan.Phases)
			}
			prevEnd := plan.StartDate
			for i, ph := range plan.Phases {
				if ph.Name != tt.expected[i] {
					t.Errorf("phase %d = %s, expected %s", i, ph.Name, tt.expected[i])
				}
				if !ph.StartDate.Equal(prevEnd) || ph.EndDate.Before(ph.StartDate) {
					t.Errorf("phase %s is not contiguous: %s to %s after %s", ph.Name, ph.StartDate, ph.EndDate, prevEnd)
				}
				prevEnd = ph.EndDate
			}
			if plan.EstimatedSaleDate.Format(datetime.DateLayout) != tt.saleDate {
				t.Errorf("EstimatedSaleDate = %s, expected %s", plan.EstimatedSaleDate.Format(datetime.DateLayout), tt.saleDate)
			}
		})
	}
}

func TestScheduleTargets(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	plan := s.Schedule(Request{
		Start:      date("2024-01-01"),
		VenalValue: decimal.NewFromInt(1260000),
		Uplifts:    UpliftOverrides{ComingSoon: floatPtr(12), Public: floatPtr(-5)},
	})

	expected := []struct {
		entry EntryPoint
		pct   float64
		value int64
	}{
		// 1 449 000
		{EntryOffMarket, 15, 1450000},
		// 1 411 200
		{EntryComingSoon, 12, 1415000},
		{EntryPublic, 0, 1260000},
	}
	if len(plan.Targets) != len(expected) {
		t.Fatalf("expected %d targets, got %+v", len(expected), plan.Targets)
	}
	for _, want := range expected {
		got, ok := plan.Target(want.entry)
		if !ok {
			t.Fatalf("missing target for %s", want.entry)
		}
		if got.UpliftPct != want.pct || !got.TargetValue.Equal(decimal.NewFromInt(want.value)) {
			t.Errorf("target %s = %v%% %s, expected %v%% %d", want.entry, got.UpliftPct, got.TargetValue, want.pct, want.value)
		}
		if !got.TargetValue.Mod(decimal.NewFromInt(5000)).IsZero() {
			t.Errorf("target %s = %s is not a multiple of 5000", want.entry, got.TargetValue)
		}
	}
}

func TestConstraintLevel(t *testing.T) {
	tests := []struct {
		name       string
		transition BuyerTransition
		expected   int
	}{
		{"No purchase", BuyerTransition{Stage: StageNotarizationScheduled}, 0},
		{"Search", BuyerTransition{HasPendingPurchase: true, Stage: StageSearch}, 1},
		{"Search high flexibility stays at one", BuyerTransition{HasPendingPurchase: true, Stage: StageSearch, Flexibility: FlexibilityHigh}, 1},
		{"Offer deposited", BuyerTransition{HasPendingPurchase: true, Stage: StageOfferDeposited}, 2},
		{"Compromise signed low flexibility", BuyerTransition{HasPendingPurchase: true, Stage: StageCompromiseSigned, Flexibility: FlexibilityLow}, 4},
		{"Notarization low flexibility", BuyerTransition{HasPendingPurchase: true, Stage: StageNotarizationScheduled, Flexibility: FlexibilityLow}, 5},
		{"Notarization high flexibility", BuyerTransition{HasPendingPurchase: true, Stage: StageNotarizationScheduled, Flexibility: FlexibilityHigh}, 3},
		{"Unknown stage", BuyerTransition{HasPendingPurchase: true, Stage: "dreaming"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.transition.ConstraintLevel(); got != tt.expected {
				t.Errorf("ConstraintLevel() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestScheduleFloorInvariant(t *testing.T) {
	s := NewScheduler(DefaultCalibration())
	start := date("2024-01-01")
	transitions := []BuyerTransition{
		{},
		{HasPendingPurchase: true, Stage: StageNotarizationScheduled, Flexibility: FlexibilityLow},
		{HasPendingPurchase: true, Stage: StageCompromiseSigned, ToleratesFastSale: true},
	}
	for _, entry := range EntryPoints {
		for months := 0; months < 24; months++ {
			for _, tr := range transitions {
				plan := s.Schedule(Request{
					EntryPoint:  entry,
					Start:       start,
					TargetMonth: start.AddDate(0, months, 0),
					Transition:  tr,
					Overrides:   Overrides{OffMarket: intPtr(1), ComingSoon: intPtr(1)},
				})
				for _, ph := range plan.Phases {
					if ph.DurationWeeks < s.cal.Minimums.Weeks(ph.Name) {
						t.Errorf("%s +%d months: phase %s has %d weeks", entry, months, ph.Name, ph.DurationWeeks)
					}
				}
			}
		}
	}
}
