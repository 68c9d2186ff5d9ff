// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/iwvelando/estimate-engine/pkg/constants"
)

const (
	// DateLayout is the format of scheduling dates.
	DateLayout = constants.DateLayout

	// MonthLayout is the format of target sale months.
	MonthLayout = constants.MonthLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextMonday returns the first Monday on or after t, as a date.
func NextMonday(t time.Time) time.Time {
	day := DateOnly(t)
	offset := (int(time.Monday) - int(day.Weekday()) + constants.DaysPerWeek) % constants.DaysPerWeek
	return day.AddDate(0, 0, offset)
}

// AddWeeks offsets t by a whole number of weeks.
func AddWeeks(t time.Time, weeks int) time.Time {
	return t.AddDate(0, 0, weeks*constants.DaysPerWeek)
}

// LastDayOfMonth returns the last calendar day of the month containing t.
func LastDayOfMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1)
}

// WholeWeeksBetween counts the complete weeks from start to end. It returns 0
// when end is before start.
func WholeWeeksBetween(start, end time.Time) int {
	days := int(DateOnly(end).Sub(DateOnly(start)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / constants.DaysPerWeek
}

// ParseDate parses a YYYY-MM-DD scheduling date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// ParseMonth parses a YYYY-MM target month into the first day of that month.
func ParseMonth(value string) (time.Time, error) {
	return time.Parse(MonthLayout, value)
}
