// Package timeline lays out the go-to-market calendar of a property: a
// preparation phase, optional off-market and coming-soon phases, and the
// public listing, scheduled either from fixed durations or backwards from a
// target sale month.
package timeline

import (
	"time"

	"github.com/iwvelando/estimate-engine/pkg/mathutil"
	"github.com/iwvelando/estimate-engine/pkg/validation"
	"github.com/shopspring/decimal"
)

// EntryPoint is the register a property enters the market with.
type EntryPoint string

const (
	EntryOffMarket  EntryPoint = "off-market"
	EntryComingSoon EntryPoint = "coming-soon"
	EntryPublic     EntryPoint = "public"
)

// EntryPoints lists every entry point in phase order.
var EntryPoints = []EntryPoint{EntryOffMarket, EntryComingSoon, EntryPublic}

// ParseEntryPoint normalizes raw. Empty input selects EntryPublic; anything
// unrecognized also selects EntryPublic but reports ok=false.
func ParseEntryPoint(raw string) (EntryPoint, bool) {
	switch EntryPoint(validation.NormalizeLabel(raw)) {
	case EntryOffMarket:
		return EntryOffMarket, true
	case EntryComingSoon:
		return EntryComingSoon, true
	case EntryPublic, "":
		return EntryPublic, true
	}
	return EntryPublic, false
}

// PhaseName identifies a phase of the plan.
type PhaseName string

const (
	PhasePreparation PhaseName = "preparation"
	PhaseOffMarket   PhaseName = "off-market"
	PhaseComingSoon  PhaseName = "coming-soon"
	PhasePublic      PhaseName = "public"
)

// includedPhases returns the phases an entry point goes through, in order.
func includedPhases(entry EntryPoint) []PhaseName {
	switch entry {
	case EntryOffMarket:
		return []PhaseName{PhasePreparation, PhaseOffMarket, PhaseComingSoon, PhasePublic}
	case EntryComingSoon:
		return []PhaseName{PhasePreparation, PhaseComingSoon, PhasePublic}
	}
	return []PhaseName{PhasePreparation, PhasePublic}
}

// Mode tells how phase durations were obtained.
type Mode string

const (
	ModeFixed  Mode = "fixed"
	ModeTarget Mode = "target"
)

// Durations holds one week count per phase.
type Durations struct {
	Preparation int `json:"preparation" yaml:"preparation" mapstructure:"preparation"`
	OffMarket   int `json:"offMarket" yaml:"offMarket" mapstructure:"offMarket"`
	ComingSoon  int `json:"comingSoon" yaml:"comingSoon" mapstructure:"comingSoon"`
	Public      int `json:"public" yaml:"public" mapstructure:"public"`
}

// Weeks returns the duration of phase.
func (d Durations) Weeks(phase PhaseName) int {
	switch phase {
	case PhasePreparation:
		return d.Preparation
	case PhaseOffMarket:
		return d.OffMarket
	case PhaseComingSoon:
		return d.ComingSoon
	case PhasePublic:
		return d.Public
	}
	return 0
}

// floor raises every duration to at least the matching minimum.
func (d Durations) floor(min Durations) Durations {
	return Durations{
		Preparation: max(d.Preparation, min.Preparation),
		OffMarket:   max(d.OffMarket, min.OffMarket),
		ComingSoon:  max(d.ComingSoon, min.ComingSoon),
		Public:      max(d.Public, min.Public),
	}
}

// Overrides replaces individual default durations. Nil fields keep the default.
type Overrides struct {
	Preparation *int `json:"preparation,omitempty" yaml:"preparation,omitempty" mapstructure:"preparation"`
	OffMarket   *int `json:"offMarket,omitempty" yaml:"offMarket,omitempty" mapstructure:"offMarket"`
	ComingSoon  *int `json:"comingSoon,omitempty" yaml:"comingSoon,omitempty" mapstructure:"comingSoon"`
	Public      *int `json:"public,omitempty" yaml:"public,omitempty" mapstructure:"public"`
}

// Apply overlays o on d. Overrides are clamped to [0, maxWeeks]; zero is later
// raised to the phase minimum.
func (o Overrides) Apply(d Durations, maxWeeks int) Durations {
	pick := func(override *int, fallback int) int {
		if override == nil {
			return fallback
		}
		return mathutil.ClampInt(*override, 0, maxWeeks)
	}
	return Durations{
		Preparation: pick(o.Preparation, d.Preparation),
		OffMarket:   pick(o.OffMarket, d.OffMarket),
		ComingSoon:  pick(o.ComingSoon, d.ComingSoon),
		Public:      pick(o.Public, d.Public),
	}
}

// Exceeding lists the phases whose override is above maxWeeks.
func (o Overrides) Exceeding(maxWeeks int) []PhaseName {
	var phases []PhaseName
	for _, phase := range []PhaseName{PhasePreparation, PhaseOffMarket, PhaseComingSoon, PhasePublic} {
		if override := o.Override(phase); override != nil && *override > maxWeeks {
			phases = append(phases, phase)
		}
	}
	return phases
}

// Override returns the raw override of phase, or nil.
func (o Overrides) Override(phase PhaseName) *int {
	switch phase {
	case PhasePreparation:
		return o.Preparation
	case PhaseOffMarket:
		return o.OffMarket
	case PhaseComingSoon:
		return o.ComingSoon
	case PhasePublic:
		return o.Public
	}
	return nil
}

// ProgressStage is how far the seller's own purchase has gone.
type ProgressStage string

const (
	StageSearch                ProgressStage = "search"
	StageOfferDeposited        ProgressStage = "offer-deposited"
	StageCompromiseSigned      ProgressStage = "compromise-signed"
	StageNotarizationScheduled ProgressStage = "notarization-scheduled"
)

var stageLevels = map[ProgressStage]int{
	StageSearch:                1,
	StageOfferDeposited:        2,
	StageCompromiseSigned:      3,
	StageNotarizationScheduled: 4,
}

// ParseProgressStage normalizes raw; ok is false when the stage is unknown.
func ParseProgressStage(raw string) (ProgressStage, bool) {
	stage := ProgressStage(validation.NormalizeLabel(raw))
	_, ok := stageLevels[stage]
	return stage, ok
}

// Flexibility is how much the seller can move their own purchase dates.
type Flexibility string

const (
	FlexibilityLow    Flexibility = "low"
	FlexibilityMedium Flexibility = "medium"
	FlexibilityHigh   Flexibility = "high"
)

// ParseFlexibility normalizes raw; ok is false when raw is set but unknown.
func ParseFlexibility(raw string) (Flexibility, bool) {
	switch f := Flexibility(validation.NormalizeLabel(raw)); f {
	case FlexibilityLow, FlexibilityMedium, FlexibilityHigh:
		return f, true
	case "":
		return FlexibilityMedium, true
	}
	return FlexibilityMedium, false
}

// MaxConstraintLevel is the highest constraint level.
const MaxConstraintLevel = 5

// BuyerTransition describes a purchase the seller depends on.
type BuyerTransition struct {
	HasPendingPurchase bool          `json:"hasPendingPurchase"`
	Stage              ProgressStage `json:"progressStage,omitempty"`
	Flexibility        Flexibility   `json:"flexibility,omitempty"`
	ToleratesFastSale  bool          `json:"toleratesFastSale"`
	ToleratesSlowSale  bool          `json:"toleratesSlowSale"`
}

// ConstraintLevel summarizes the pressure the purchase puts on the timeline,
// from 0 (none) to MaxConstraintLevel.
func (b BuyerTransition) ConstraintLevel() int {
	if !b.HasPendingPurchase {
		return 0
	}
	level, ok := stageLevels[b.Stage]
	if !ok {
		level = stageLevels[StageSearch]
	}
	switch b.Flexibility {
	case FlexibilityLow:
		level++
	case FlexibilityHigh:
		level--
	}
	return min(max(level, 1), MaxConstraintLevel)
}

// Request is the scheduler input. Start is the calendar day scheduling begins
// from; TargetMonth is any day of the target sale month, or zero for none.
type Request struct {
	EntryPoint  EntryPoint
	Start       time.Time
	TargetMonth time.Time
	Overrides   Overrides
	PauseWeeks  int
	Transition  BuyerTransition
	VenalValue  decimal.Decimal
	Uplifts     UpliftOverrides
}

// Phase is one scheduled phase. EndDate is the StartDate of the next phase.
type Phase struct {
	Name          PhaseName `json:"name"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	DurationWeeks int       `json:"durationWeeks"`
}

// Target is the asking price for one entry point.
type Target struct {
	EntryPoint  EntryPoint      `json:"entryPoint"`
	UpliftPct   float64         `json:"upliftPct"`
	TargetValue decimal.Decimal `json:"targetValue"`
}

// Plan is the scheduled go-to-market calendar.
type Plan struct {
	EntryPoint        EntryPoint `json:"entryPoint"`
	Mode              Mode       `json:"mode"`
	ConstraintLevel   int        `json:"constraintLevel"`
	StartDate         time.Time  `json:"startDate"`
	TargetWeeks       int        `json:"targetWeeks,omitempty"`
	Phases            []Phase    `json:"phases"`
	TotalWeeks        int        `json:"totalWeeks"`
	EstimatedSaleDate time.Time  `json:"estimatedSaleDate"`
	Targets           []Target   `json:"targets"`
	Adjustments       []string   `json:"adjustments"`
}

// Phase returns the named phase, if the plan includes it.
func (p Plan) Phase(name PhaseName) (Phase, bool) {
	for _, ph := range p.Phases {
		if ph.Name == name {
			return ph, true
		}
	}
	return Phase{}, false
}

// Target returns the target of entry.
func (p Plan) Target(entry EntryPoint) (Target, bool) {
	for _, t := range p.Targets {
		if t.EntryPoint == entry {
			return t, true
		}
	}
	return Target{}, false
}
