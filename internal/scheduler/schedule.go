package scheduler

import (
	"time"

	"econ-calendar-bot/internal/types"
)

// Window is the active period of the live job: [Start, End) in local wall-clock time.
type Window struct {
	Start        types.TimeOfDay
	End          types.TimeOfDay
	WeekdaysOnly bool
}

func (w Window) Contains(t time.Time) bool {
	if w.WeekdaysOnly && (t.Weekday() == time.Saturday || t.Weekday() == time.Sunday) {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= minutes(w.Start) && m < minutes(w.End)
}

func minutes(t types.TimeOfDay) int { return t.Hour*60 + t.Minute }

// NextDaily is the first occurrence of at strictly after now, in now's location.
// Missed fires are never replayed.
func NextDaily(now time.Time, at types.TimeOfDay) time.Time {
	loc := now.Location()
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, at.Hour, at.Minute, 0, 0, loc)
	}
	return next
}

// NextInterval aligns fires to multiples of interval since the zero time.
func NextInterval(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}

// AfterCutover reports whether the "for tomorrow" fetch is due at t.
func AfterCutover(t time.Time, cutover types.TimeOfDay) bool {
	if !cutover.Known() {
		return false
	}
	return t.Hour()*60+t.Minute() >= minutes(cutover)
}

// Tomorrow is the calendar date after t.
func Tomorrow(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 12, 0, 0, 0, t.Location()).Format(types.DateLayout)
}
