package engine

import (
	"fmt"

	"github.com/iwvelando/estimate-engine/internal/timeline"
	"github.com/iwvelando/estimate-engine/pkg/constants"
)

// Calibration holds the tunable constants of the engine.
type Calibration struct {
	CapitalizationRatePct float64              `json:"capitalizationRatePct" yaml:"capitalizationRatePct" mapstructure:"capitalizationRatePct"`
	Timeline              timeline.Calibration `json:"timeline" yaml:"timeline" mapstructure:"timeline"`
}

// DefaultCalibration returns the standard calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		CapitalizationRatePct: constants.DefaultCapitalizationRatePct,
		Timeline:              timeline.DefaultCalibration(),
	}
}

// Validate checks every constant.
func (c Calibration) Validate() error {
	if c.CapitalizationRatePct < 0 {
		return fmt.Errorf("capitalizationRatePct must not be negative, got %g", c.CapitalizationRatePct)
	}
	if err := c.Timeline.Validate(); err != nil {
		return fmt.Errorf("timeline calibration: %w", err)
	}
	return nil
}
