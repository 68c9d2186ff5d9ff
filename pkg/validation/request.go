package validation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iwvelando/estimate-engine/pkg/datetime"
)

// NormalizeLabel lower-cases a label and joins its words with dashes so that
// "Lake view", "lake_view" and "LAKE-VIEW" all compare equal.
func NormalizeLabel(label string) string {
	fields := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	return strings.Join(fields, "-")
}

// NumericFieldWarning returns a warning when a numeric input will be treated
// as zero, or an empty string when the value is usable as is.
func NumericFieldWarning(field string, value float64) string {
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0):
		return fmt.Sprintf("%s is not a finite number and is treated as 0", field)
	case value < 0:
		return fmt.Sprintf("%s is negative (%g) and is treated as 0", field, value)
	}
	return ""
}

// CountFieldWarning is NumericFieldWarning for counts, which also reports
// fractions.
func CountFieldWarning(field string, value Number) string {
	if msg := NumericFieldWarning(field, float64(value)); msg != "" {
		return msg
	}
	if float64(value) != math.Trunc(float64(value)) {
		return fmt.Sprintf("%s %g is not a whole number, using %d", field, float64(value), value.Count())
	}
	return ""
}

// EnumWarning reports that raw did not match a known value of field and that
// fallback is used instead.
func EnumWarning(field, raw, fallback string) string {
	if fallback == "" {
		return fmt.Sprintf("%s %q is not recognized and is ignored", field, raw)
	}
	return fmt.Sprintf("%s %q is not recognized, using %s", field, raw, fallback)
}

// ParseSchedulingDate parses an optional YYYY-MM-DD date. An empty value
// yields fallback with no warning; an invalid one yields fallback and a warning.
func ParseSchedulingDate(value string, fallback time.Time) (time.Time, string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, ""
	}
	t, err := datetime.ParseDate(trimmed)
	if err != nil {
		return fallback, fmt.Sprintf("schedulingStartDate %q is not a YYYY-MM-DD date, using %s",
			value, fallback.Format(datetime.DateLayout))
	}
	return t, ""
}

// ParseTargetMonth parses an optional YYYY-MM month. It returns the zero time
// when the month is absent or invalid, plus warnings for invalid months and
// months that end before start.
func ParseTargetMonth(value string, start time.Time) (time.Time, []string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	month, err := datetime.ParseMonth(trimmed)
	if err != nil {
		return time.Time{}, []string{fmt.Sprintf("targetSaleMonth %q is not a YYYY-MM month and is ignored", value)}
	}
	var warnings []string
	if datetime.LastDayOfMonth(month).Before(datetime.DateOnly(start)) {
		warnings = append(warnings, fmt.Sprintf("targetSaleMonth %s ends before the scheduling start %s, the minimum timeline applies",
			trimmed, start.Format(datetime.DateLayout)))
	}
	return month, warnings
}
