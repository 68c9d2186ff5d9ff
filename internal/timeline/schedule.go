package timeline

import (
	"fmt"
	"time"

	"github.com/iwvelando/estimate-engine/pkg/datetime"
	"github.com/iwvelando/estimate-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Scheduler computes plans from a fixed calibration. It holds no mutable
// state and may be shared between goroutines.
type Scheduler struct {
	cal Calibration
}

// NewScheduler returns a scheduler using cal.
func NewScheduler(cal Calibration) *Scheduler {
	return &Scheduler{cal: cal}
}

// Calibration returns the calibration the scheduler runs with.
func (s *Scheduler) Calibration() Calibration {
	return s.cal
}

// Schedule lays out the phases of req. Target mode applies when a target
// month is given and the buyer-transition constraint is below the hard level;
// fixed mode applies otherwise.
func (s *Scheduler) Schedule(req Request) Plan {
	entry, _ := ParseEntryPoint(string(req.EntryPoint))
	level := req.Transition.ConstraintLevel()
	start := datetime.NextMonday(req.Start)

	plan := Plan{
		EntryPoint:      entry,
		ConstraintLevel: level,
		StartDate:       start,
		Phases:          []Phase{},
		Adjustments:     []string{},
	}

	base := req.Overrides.Apply(s.cal.Defaults, s.cal.MaxPhaseWeeks)
	if pause := mathutil.ClampInt(req.PauseWeeks, 0, s.cal.MaxPhaseWeeks); pause > 0 {
		base.Preparation += pause
		plan.Adjustments = append(plan.Adjustments, fmt.Sprintf("recalibration pause: preparation +%d week(s)", pause))
	}

	var durations Durations
	if !req.TargetMonth.IsZero() && level < s.cal.Transition.HardLevel {
		plan.Mode = ModeTarget
		plan.TargetWeeks = s.targetWeeks(start, req.TargetMonth)
		durations = s.allocate(plan.TargetWeeks, base.Preparation, entry)
	} else {
		plan.Mode = ModeFixed
		var note string
		durations, note = s.adjustForTransition(base, req.Transition, level)
		if note != "" {
			plan.Adjustments = append(plan.Adjustments, note)
		}
	}
	durations = durations.floor(s.cal.Minimums)

	cursor := start
	for _, name := range includedPhases(entry) {
		weeks := durations.Weeks(name)
		end := datetime.AddWeeks(cursor, weeks)
		plan.Phases = append(plan.Phases, Phase{
			Name:          name,
			StartDate:     cursor,
			EndDate:       end,
			DurationWeeks: weeks,
		})
		plan.TotalWeeks += weeks
		cursor = end
	}
	plan.EstimatedSaleDate = cursor
	plan.Targets = s.targets(req.VenalValue, req.Uplifts)

	return plan
}

// targetWeeks counts the whole weeks from start to the last day of the target
// month, with the calibrated minimum.
func (s *Scheduler) targetWeeks(start, targetMonth time.Time) int {
	weeks := datetime.WholeWeeksBetween(start, datetime.LastDayOfMonth(targetMonth))
	return max(weeks, s.cal.MinimumTargetWeeks)
}

// allocate splits total weeks across phases using the band table. Weeks of
// phases the entry point skips are given to the public phase.
func (s *Scheduler) allocate(total, preparation int, entry EntryPoint) Durations {
	preparation = max(preparation, s.cal.Minimums.Preparation)
	remaining := total - preparation
	band := s.cal.bandFor(remaining)

	d := Durations{
		Preparation: preparation,
		OffMarket:   band.offMarket(remaining, s.cal.Minimums.Public),
		ComingSoon:  band.ComingSoon,
	}
	d.Public = remaining - d.OffMarket - d.ComingSoon

	switch entry {
	case EntryComingSoon:
		d.Public += d.OffMarket
		d.OffMarket = 0
	case EntryPublic:
		d.Public += d.OffMarket + d.ComingSoon
		d.OffMarket, d.ComingSoon = 0, 0
	}
	return d
}

// adjustForTransition applies the buyer-transition rules of fixed mode and
// describes the change applied, if any.
func (s *Scheduler) adjustForTransition(d Durations, t BuyerTransition, level int) (Durations, string) {
	r := s.cal.Transition
	switch {
	case level == 0:
		return d, ""
	case level >= r.HardLevel && t.Flexibility == FlexibilityLow:
		d.OffMarket -= r.LowFlexOffMarketCut
		d.ComingSoon -= r.LowFlexComingSoonCut
		return d, fmt.Sprintf("buyer transition level %d with low flexibility: off-market -%d, coming-soon -%d week(s)",
			level, r.LowFlexOffMarketCut, r.LowFlexComingSoonCut)
	case level >= r.HardLevel:
		d.OffMarket -= r.HardOffMarketCut
		return d, fmt.Sprintf("buyer transition level %d: off-market -%d week(s)", level, r.HardOffMarketCut)
	case level == r.FastSaleLevel && t.ToleratesFastSale:
		d.OffMarket -= r.FastSaleCut
		return d, fmt.Sprintf("buyer transition level %d, fast sale tolerated: off-market -%d week(s)", level, r.FastSaleCut)
	case level == r.SlowSaleLevel && t.ToleratesSlowSale:
		d.OffMarket += r.SlowSaleExtension
		return d, fmt.Sprintf("buyer transition level %d, slow sale tolerated: off-market +%d week(s)", level, r.SlowSaleExtension)
	}
	return d, ""
}

func (s *Scheduler) targets(venal decimal.Decimal, overrides UpliftOverrides) []Target {
	uplifts := overrides.Apply(s.cal.Uplifts)
	targets := make([]Target, 0, len(EntryPoints))
	for _, entry := range EntryPoints {
		pct := uplifts.Pct(entry)
		targets = append(targets, Target{
			EntryPoint:  entry,
			UpliftPct:   pct,
			TargetValue: mathutil.CeilToRoundingUnit(mathutil.ApplyUplift(venal, pct)),
		})
	}
	return targets
}
