package timeline

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Band allocates the weeks left after preparation in target mode. A band
// applies while the remaining weeks are below Below; Below of 0 closes the
// table. With a positive OffMarketShare the off-market duration is
// floor(share × (remaining − public minimum − ComingSoon)) capped at
// OffMarketCap, otherwise it is OffMarket.
type Band struct {
	Below          int     `json:"below" yaml:"below" mapstructure:"below"`
	OffMarket      int     `json:"offMarket" yaml:"offMarket" mapstructure:"offMarket"`
	OffMarketShare float64 `json:"offMarketShare" yaml:"offMarketShare" mapstructure:"offMarketShare"`
	OffMarketCap   int     `json:"offMarketCap" yaml:"offMarketCap" mapstructure:"offMarketCap"`
	ComingSoon     int     `json:"comingSoon" yaml:"comingSoon" mapstructure:"comingSoon"`
}

func (b Band) contains(remaining int) bool {
	return b.Below == 0 || remaining < b.Below
}

func (b Band) offMarket(remaining, publicMin int) int {
	if b.OffMarketShare <= 0 {
		return b.OffMarket
	}
	basis := decimal.NewFromInt(int64(remaining - publicMin - b.ComingSoon))
	weeks := int(decimal.NewFromFloat(b.OffMarketShare).Mul(basis).Floor().IntPart())
	if b.OffMarketCap > 0 {
		weeks = min(weeks, b.OffMarketCap)
	}
	return weeks
}

// TransitionRules hold the buyer-transition adjustments of fixed mode.
type TransitionRules struct {
	HardLevel            int `json:"hardLevel" yaml:"hardLevel" mapstructure:"hardLevel"`
	HardOffMarketCut     int `json:"hardOffMarketCut" yaml:"hardOffMarketCut" mapstructure:"hardOffMarketCut"`
	LowFlexOffMarketCut  int `json:"lowFlexOffMarketCut" yaml:"lowFlexOffMarketCut" mapstructure:"lowFlexOffMarketCut"`
	LowFlexComingSoonCut int `json:"lowFlexComingSoonCut" yaml:"lowFlexComingSoonCut" mapstructure:"lowFlexComingSoonCut"`
	FastSaleLevel        int `json:"fastSaleLevel" yaml:"fastSaleLevel" mapstructure:"fastSaleLevel"`
	FastSaleCut          int `json:"fastSaleCut" yaml:"fastSaleCut" mapstructure:"fastSaleCut"`
	SlowSaleLevel        int `json:"slowSaleLevel" yaml:"slowSaleLevel" mapstructure:"slowSaleLevel"`
	SlowSaleExtension    int `json:"slowSaleExtension" yaml:"slowSaleExtension" mapstructure:"slowSaleExtension"`
}

// Uplifts are the target value percentages per entry point.
type Uplifts struct {
	OffMarket  float64 `json:"offMarket" yaml:"offMarket" mapstructure:"offMarket"`
	ComingSoon float64 `json:"comingSoon" yaml:"comingSoon" mapstructure:"comingSoon"`
	Public     float64 `json:"public" yaml:"public" mapstructure:"public"`
}

// Pct returns the uplift of entry.
func (u Uplifts) Pct(entry EntryPoint) float64 {
	switch entry {
	case EntryOffMarket:
		return u.OffMarket
	case EntryComingSoon:
		return u.ComingSoon
	}
	return u.Public
}

// UpliftOverrides replaces individual uplifts. Negative values count as zero.
type UpliftOverrides struct {
	OffMarket  *float64 `json:"offMarket,omitempty" yaml:"offMarket,omitempty" mapstructure:"offMarket"`
	ComingSoon *float64 `json:"comingSoon,omitempty" yaml:"comingSoon,omitempty" mapstructure:"comingSoon"`
	Public     *float64 `json:"public,omitempty" yaml:"public,omitempty" mapstructure:"public"`
}

// Apply overlays o on u.
func (o UpliftOverrides) Apply(u Uplifts) Uplifts {
	pick := func(override *float64, fallback float64) float64 {
		if override == nil {
			return fallback
		}
		return max(*override, 0)
	}
	return Uplifts{
		OffMarket:  pick(o.OffMarket, u.OffMarket),
		ComingSoon: pick(o.ComingSoon, u.ComingSoon),
		Public:     pick(o.Public, u.Public),
	}
}

// Calibration gathers every tunable constant of the scheduler.
type Calibration struct {
	Defaults           Durations       `json:"defaults" yaml:"defaults" mapstructure:"defaults"`
	Minimums           Durations       `json:"minimums" yaml:"minimums" mapstructure:"minimums"`
	MinimumTargetWeeks int             `json:"minimumTargetWeeks" yaml:"minimumTargetWeeks" mapstructure:"minimumTargetWeeks"`
	MaxPhaseWeeks      int             `json:"maxPhaseWeeks" yaml:"maxPhaseWeeks" mapstructure:"maxPhaseWeeks"`
	Bands              []Band          `json:"bands" yaml:"bands" mapstructure:"bands"`
	Transition         TransitionRules `json:"transition" yaml:"transition" mapstructure:"transition"`
	Uplifts            Uplifts         `json:"uplifts" yaml:"uplifts" mapstructure:"uplifts"`
}

// DefaultCalibration returns the standard calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		Defaults:           Durations{Preparation: 1, OffMarket: 3, ComingSoon: 2, Public: 10},
		Minimums:           Durations{Preparation: 1, OffMarket: 1, ComingSoon: 1, Public: 4},
		MinimumTargetWeeks: 6,
		MaxPhaseWeeks:      104,
		Bands: []Band{
			{Below: 6, OffMarket: 1, ComingSoon: 1},
			{Below: 12, OffMarket: 2, ComingSoon: 2},
			{Below: 20, OffMarketShare: 0.40, OffMarketCap: 6, ComingSoon: 2},
			{Below: 30, OffMarketShare: 0.50, OffMarketCap: 12, ComingSoon: 3},
			{Below: 40, OffMarketShare: 0.55, OffMarketCap: 20, ComingSoon: 3},
			{OffMarket: 20, ComingSoon: 4},
		},
		Transition: TransitionRules{
			HardLevel:            4,
			HardOffMarketCut:     2,
			LowFlexOffMarketCut:  1,
			LowFlexComingSoonCut: 1,
			FastSaleLevel:        3,
			FastSaleCut:          1,
			SlowSaleLevel:        1,
			SlowSaleExtension:    1,
		},
		Uplifts: Uplifts{OffMarket: 15, ComingSoon: 10, Public: 6},
	}
}

// Validate checks that the calibration can schedule every request.
func (c Calibration) Validate() error {
	if c.Minimums.Preparation < 1 || c.Minimums.OffMarket < 1 || c.Minimums.ComingSoon < 1 || c.Minimums.Public < 1 {
		return errors.New("every phase minimum must be at least one week")
	}
	if c.MinimumTargetWeeks < 1 {
		return fmt.Errorf("minimumTargetWeeks must be positive, got %d", c.MinimumTargetWeeks)
	}
	if floor := max(c.Minimums.Preparation, c.Minimums.OffMarket, c.Minimums.ComingSoon, c.Minimums.Public); c.MaxPhaseWeeks < floor {
		return fmt.Errorf("maxPhaseWeeks %d is below the largest phase minimum %d", c.MaxPhaseWeeks, floor)
	}
	if len(c.Bands) == 0 {
		return errors.New("at least one target band is required")
	}
	prev := 0
	for i, b := range c.Bands {
		last := i == len(c.Bands)-1
		if b.Below == 0 && !last {
			return fmt.Errorf("band %d is open-ended but is not the last band", i)
		}
		if !last && b.Below <= prev {
			return fmt.Errorf("band %d bound %d does not increase on %d", i, b.Below, prev)
		}
		if b.OffMarketShare < 0 || b.OffMarketShare > 1 {
			return fmt.Errorf("band %d offMarketShare %g outside [0, 1]", i, b.OffMarketShare)
		}
		if b.OffMarket < 0 || b.ComingSoon < 0 || b.OffMarketCap < 0 {
			return fmt.Errorf("band %d has a negative duration", i)
		}
		prev = b.Below
	}
	if c.Bands[len(c.Bands)-1].Below != 0 {
		return errors.New("the last band must be open-ended (below: 0)")
	}
	if c.Transition.HardLevel < 1 {
		return fmt.Errorf("transition hardLevel must be positive, got %d", c.Transition.HardLevel)
	}
	if c.Uplifts.OffMarket < 0 || c.Uplifts.ComingSoon < 0 || c.Uplifts.Public < 0 {
		return errors.New("uplifts must not be negative")
	}
	return nil
}

func (c Calibration) bandFor(remaining int) Band {
	for _, b := range c.Bands {
		if b.contains(remaining) {
			return b
		}
	}
	return c.Bands[len(c.Bands)-1]
}
