// Package exposure scores how much fresh market attention a property retains
// after earlier marketing attempts, and emits advisory alerts for the report.
package exposure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/estimate-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// DurationBucket is how long a property was previously on the market.
type DurationBucket string

const (
	LessThanOneMonth   DurationBucket = "lt-1m"
	OneToThreeMonths   DurationBucket = "1-3m"
	ThreeToSixMonths   DurationBucket = "3-6m"
	SixToTwelveMonths  DurationBucket = "6-12m"
	MoreThanTwelveMths DurationBucket = "gt-12m"
)

// Intensity is how aggressively a property was previously marketed.
type Intensity string

const (
	Discreet Intensity = "discreet"
	Moderate Intensity = "moderate"
	Massive  Intensity = "massive"
)

// Severity ranks alerts for the renderer.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Alert codes.
const (
	AlertPauseRecommended = "pause-recommended"
	AlertRefreshMaterials = "refresh-materials"
	AlertPriceGap         = "price-gap"
	AlertChannelsUsed     = "channels-used"
)

// Score bounds and thresholds.
const (
	MaxScore           = 100
	MinScore           = 10
	PauseThreshold     = 40
	discreetBonus      = 10
	discreetBonusAbove = 15
	massivePenalty     = 10
	priceGapWarningPct = 30
	priceGapInfoPct    = 10
)

type bucketRule struct {
	impact     int
	pauseWeeks int
	long       bool
}

var bucketRules = map[DurationBucket]bucketRule{
	LessThanOneMonth:   {impact: 5, pauseWeeks: 1},
	OneToThreeMonths:   {impact: 15, pauseWeeks: 2},
	ThreeToSixMonths:   {impact: 30, pauseWeeks: 3, long: true},
	SixToTwelveMonths:  {impact: 50, pauseWeeks: 4, long: true},
	MoreThanTwelveMths: {impact: 65, pauseWeeks: 5, long: true},
}

// unknownBucketRule applies to buckets missing from bucketRules.
var unknownBucketRule = bucketRule{impact: 15, pauseWeeks: 2}

var intensityImpacts = map[Intensity]int{
	Discreet: 5,
	Moderate: 15,
	Massive:  30,
}

const unknownIntensityImpact = 15

// History describes earlier marketing of the property.
type History struct {
	PreviouslyMarketed bool
	Duration           DurationBucket
	Intensity          Intensity
	DisplayedPrice     float64
	Channels           []string
}

// Alert is one advisory message.
type Alert struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Result is the exposure capital of a property.
type Result struct {
	Score                   int     `json:"score"`
	DurationImpact          int     `json:"durationImpact"`
	IntensityImpact         int     `json:"intensityImpact"`
	PriceGapPct             float64 `json:"priceGapPct,omitempty"`
	Alerts                  []Alert `json:"alerts"`
	RecalibrationPauseWeeks int     `json:"recalibrationPauseWeeks"`
}

// KnownDuration reports whether b has its own rule.
func KnownDuration(b DurationBucket) bool {
	_, ok := bucketRules[b]
	return ok
}

// KnownIntensity reports whether i has its own impact.
func KnownIntensity(i Intensity) bool {
	_, ok := intensityImpacts[i]
	return ok
}

// Evaluate scores history against the current venal value. A nil or never
// marketed history keeps the full capital.
func Evaluate(history *History, venal decimal.Decimal) Result {
	if history == nil || !history.PreviouslyMarketed {
		return Result{Score: MaxScore, Alerts: []Alert{}}
	}

	rule := ruleFor(history.Duration)
	intensity, ok := intensityImpacts[history.Intensity]
	if !ok {
		intensity = unknownIntensityImpact
	}

	score := MaxScore - rule.impact - intensity
	if history.Intensity == Discreet && rule.impact > discreetBonusAbove {
		score += discreetBonus
	}
	if history.Intensity == Massive && rule.long {
		score -= massivePenalty
	}

	res := Result{
		Score:           mathutil.ClampInt(score, MinScore, MaxScore),
		DurationImpact:  rule.impact,
		IntensityImpact: intensity,
		Alerts:          []Alert{},
	}

	if res.Score < PauseThreshold {
		res.RecalibrationPauseWeeks = rule.pauseWeeks
		res.Alerts = append(res.Alerts,
			Alert{
				Severity: SeverityCritical,
				Code:     AlertPauseRecommended,
				Message: fmt.Sprintf("Market capital at %d/100: pause all exposure for %d week(s) before relaunching",
					res.Score, rule.pauseWeeks),
			},
			Alert{
				Severity: SeverityInfo,
				Code:     AlertRefreshMaterials,
				Message:  "Refresh photos, listing copy and presentation before relaunching",
			},
		)
	}

	if displayed := mathutil.Decimal(history.DisplayedPrice); displayed.IsPositive() && venal.IsPositive() {
		gap := mathutil.CalculatePercentage(displayed.Sub(venal), venal)
		res.PriceGapPct = gap.Round(1).InexactFloat64()
		if alert, ok := priceGapAlert(gap); ok {
			res.Alerts = append(res.Alerts, alert)
		}
	}

	if channels := normalizeChannels(history.Channels); len(channels) > 0 {
		res.Alerts = append(res.Alerts, Alert{
			Severity: SeverityInfo,
			Code:     AlertChannelsUsed,
			Message:  fmt.Sprintf("Previously used channels: %s", strings.Join(channels, ", ")),
		})
	}

	return res
}

func ruleFor(b DurationBucket) bucketRule {
	if rule, ok := bucketRules[b]; ok {
		return rule
	}
	return unknownBucketRule
}

func priceGapAlert(gap decimal.Decimal) (Alert, bool) {
	msg := fmt.Sprintf("Previously displayed price was %s%% above the current valuation", gap.StringFixed(1))
	switch {
	case gap.GreaterThan(decimal.NewFromInt(priceGapWarningPct)):
		return Alert{Severity: SeverityWarning, Code: AlertPriceGap, Message: msg}, true
	case gap.GreaterThan(decimal.NewFromInt(priceGapInfoPct)):
		return Alert{Severity: SeverityInfo, Code: AlertPriceGap, Message: msg}, true
	}
	return Alert{}, false
}

func normalizeChannels(channels []string) []string {
	seen := make(map[string]struct{}, len(channels))
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		trimmed := strings.TrimSpace(ch)
		key := strings.ToLower(trimmed)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
