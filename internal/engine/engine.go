// Package engine runs the valuation pipeline for one property: itemized
// components, triangulation, exposure capital, entry-point classification and
// the go-to-market timeline.
package engine

import (
	"fmt"
	"time"

	"github.com/iwvelando/estimate-engine/internal/entrypoint"
	"github.com/iwvelando/estimate-engine/internal/exposure"
	"github.com/iwvelando/estimate-engine/internal/timeline"
	"github.com/iwvelando/estimate-engine/internal/valuation"
	"go.uber.org/zap"
)

// Result is the engine output for one property.
type Result struct {
	Name              string                    `json:"name,omitempty"`
	ValueBreakdown    valuation.Breakdown       `json:"valueBreakdown"`
	ExposureCapital   exposure.Result           `json:"exposureCapital"`
	EntryPoint        entrypoint.Classification `json:"entryPointClassification"`
	IsPremiumRegister bool                      `json:"isPremiumRegister"`
	TimelinePlan      timeline.Plan             `json:"timelinePlan"`
	Warnings          []string                  `json:"warnings"`
}

// Engine computes valuations. It is safe for concurrent use.
type Engine struct {
	logger    *zap.Logger
	cal       Calibration
	scheduler *timeline.Scheduler
}

// New returns an engine running with cal.
func New(logger *zap.Logger, cal Calibration) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	return &Engine{
		logger:    logger,
		cal:       cal,
		scheduler: timeline.NewScheduler(cal.Timeline),
	}, nil
}

// Calibration returns the calibration of e.
func (e *Engine) Calibration() Calibration {
	return e.cal
}

// Compute runs the pipeline with today as the default scheduling date.
func (e *Engine) Compute(req ValuationRequest) (Result, error) {
	return e.ComputeWithFixedTime(req, time.Now())
}

// ComputeWithFixedTime runs the pipeline with now as the default scheduling
// date. Identical inputs produce identical results.
func (e *Engine) ComputeWithFixedTime(req ValuationRequest, now time.Time) (Result, error) {
	in, err := e.resolve(req, now)
	if err != nil {
		e.logger.Warn("rejecting valuation request",
			zap.String("op", "engine.Compute"),
			zap.String("name", req.Name),
			zap.Error(err),
		)
		return Result{}, err
	}

	components, err := valuation.CalculateComponents(in.profile, in.pricing)
	if err != nil {
		return Result{}, err
	}
	triangulation := valuation.Triangulate(components.VenalValue, in.pricing.GrossMonthlyRent, in.pricing.CapitalizationRatePct)
	breakdown := valuation.NewBreakdown(in.profile.Type, components, triangulation)

	capital := exposure.Evaluate(in.history, breakdown.VenalValue)

	in.classifier.VenalValue = breakdown.VenalValue
	classification := entrypoint.Classify(in.classifier)

	in.schedule.PauseWeeks = capital.RecalibrationPauseWeeks
	in.schedule.VenalValue = breakdown.VenalValue
	plan := e.scheduler.Schedule(in.schedule)

	warnings := in.warnings
	if warnings == nil {
		warnings = []string{}
	}
	for _, w := range warnings {
		e.logger.Warn(w,
			zap.String("op", "engine.Compute"),
			zap.String("name", req.Name),
		)
	}

	e.logger.Debug(fmt.Sprintf("computed valuation for %s", displayName(req.Name)),
		zap.String("op", "engine.Compute"),
		zap.String("venalValue", breakdown.VenalValue.String()),
		zap.Int("exposureScore", capital.Score),
		zap.Int("premiumScore", classification.Score),
		zap.String("mode", string(plan.Mode)),
		zap.Time("estimatedSaleDate", plan.EstimatedSaleDate),
	)

	return Result{
		Name:              req.Name,
		ValueBreakdown:    breakdown,
		ExposureCapital:   capital,
		EntryPoint:        classification,
		IsPremiumRegister: classification.IsPremiumRegister,
		TimelinePlan:      plan,
		Warnings:          warnings,
	}, nil
}

// ValidateRequest reports what the engine would change or ignore in req
// without computing it. The error is the one Compute would return.
func (e *Engine) ValidateRequest(req ValuationRequest, now time.Time) ([]string, error) {
	in, err := e.resolve(req, now)
	if err != nil {
		return nil, err
	}
	if in.warnings == nil {
		return []string{}, nil
	}
	return in.warnings, nil
}

// ComputeAll computes every active property in order.
func (e *Engine) ComputeAll(properties []Property, now time.Time) ([]Result, error) {
	var results []Result
	for _, property := range properties {
		if !property.Active {
			e.logger.Debug(fmt.Sprintf("skipping property %s because it is inactive", displayName(property.Name)),
				zap.String("op", "engine.ComputeAll"),
			)
			continue
		}
		result, err := e.ComputeWithFixedTime(property.ValuationRequest, now)
		if err != nil {
			return results, fmt.Errorf("property %s: %w", displayName(property.Name), err)
		}
		results = append(results, result)
	}
	return results, nil
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}
