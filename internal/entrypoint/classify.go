// Package entrypoint decides whether a property warrants the discreet,
// premium commercialization register. The result only selects vocabulary for
// the report; it never feeds back into valuation figures.
package entrypoint

import (
	"github.com/iwvelando/estimate-engine/pkg/validation"
	"github.com/shopspring/decimal"
)

// PremiumThreshold is the score from which the premium register applies.
const PremiumThreshold = 35

// Input carries the signals the classifier looks at.
type Input struct {
	IsHouse            bool
	SubType            string
	TopFloor           bool
	LivingSurface      float64
	LandSurface        float64
	Amenities          []string
	WantsDiscretion    bool
	LongHorizon        bool
	PricePriority      bool
	PreviouslyMarketed bool
	VenalValue         decimal.Decimal
}

// Signal is one contribution to the score.
type Signal struct {
	Key    string `json:"key"`
	Points int    `json:"points"`
}

// Classification is the classifier output.
type Classification struct {
	Score             int      `json:"score"`
	IsPremiumRegister bool     `json:"isPremiumRegister"`
	Signals           []Signal `json:"signals"`
}

type threshold struct {
	min    float64
	points int
}

// Threshold tables are ordered from the highest bracket down; the first match wins.
var (
	livingSurfaceThresholds = []threshold{{300, 15}, {200, 10}, {150, 5}}
	landSurfaceThresholds   = []threshold{{3000, 15}, {1500, 10}, {800, 5}}
	venalValueThresholds    = []threshold{{10000000, 20}, {5000000, 15}, {3000000, 10}, {2000000, 5}}
)

var subTypePoints = map[string]int{
	"penthouse":       15,
	"villa":           15,
	"estate":          15,
	"mansion":         15,
	"loft":            12,
	"duplex":          12,
	"chalet":          12,
	"architect-house": 12,
	"historic":        12,
}

var amenityPoints = map[string]int{
	"pool":           12,
	"lake-view":      10,
	"panoramic-view": 8,
	"spa":            8,
	"tennis":         6,
	"concierge":      5,
}

const (
	topFloorPoints          = 8
	discretionPoints        = 12
	longHorizonPoints       = 5
	pricePriorityPoints     = 8
	priorExposureDiscretion = 8
)

// KnownAmenity reports whether amenity scores points.
func KnownAmenity(amenity string) bool {
	_, ok := amenityPoints[validation.NormalizeLabel(amenity)]
	return ok
}

// Classify scores in and applies PremiumThreshold.
func Classify(in Input) Classification {
	c := Classification{Signals: []Signal{}}
	add := func(key string, points int) {
		if points <= 0 {
			return
		}
		c.Score += points
		c.Signals = append(c.Signals, Signal{Key: key, Points: points})
	}

	if subType := validation.NormalizeLabel(in.SubType); subType != "" {
		add("sub-type:"+subType, subTypePoints[subType])
	}
	if in.TopFloor && !in.IsHouse {
		add("top-floor", topFloorPoints)
	}
	add("living-surface", bracket(livingSurfaceThresholds, in.LivingSurface))
	if in.IsHouse {
		add("land-surface", bracket(landSurfaceThresholds, in.LandSurface))
	}

	seen := make(map[string]struct{}, len(in.Amenities))
	for _, raw := range in.Amenities {
		amenity := validation.NormalizeLabel(raw)
		if _, dup := seen[amenity]; dup {
			continue
		}
		seen[amenity] = struct{}{}
		add("amenity:"+amenity, amenityPoints[amenity])
	}

	if in.WantsDiscretion {
		add("seller-discretion", discretionPoints)
	}
	if in.LongHorizon {
		add("seller-long-horizon", longHorizonPoints)
	}
	if in.PricePriority {
		add("seller-price-priority", pricePriorityPoints)
	}
	if in.PreviouslyMarketed && in.WantsDiscretion {
		add("prior-exposure-discretion", priorExposureDiscretion)
	}
	add("venal-value", bracket(venalValueThresholds, in.VenalValue.InexactFloat64()))

	c.IsPremiumRegister = c.Score >= PremiumThreshold
	return c
}

func bracket(table []threshold, value float64) int {
	for _, t := range table {
		if value >= t.min {
			return t.points
		}
	}
	return 0
}
