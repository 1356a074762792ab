package domain

import (
	"math"
	"time"
)

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// DaysUntil counts calendar days from today to the day of target. Rounding
// absorbs DST transitions.
func DaysUntil(today, target time.Time, loc *time.Location) int {
	from := StartOfDay(today, loc)
	to := StartOfDay(target, loc)
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// DateOf keeps t's own calendar date and pins it to midnight in loc. Used
// for caller-supplied dates, which are calendar days rather than instants.
func DateOf(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
