package models

import "time"

// DateOnly truncates t to midnight in its own location. Streak dates are
// always stored in this form so same-day comparisons are exact.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateKey formats a date for use in cache keys and logs.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DaysBetween returns the number of calendar days from `from` to `to`
// (negative when `to` precedes `from`). Dates are compared as calendar
// days, so DST transitions do not skew the count.
func DaysBetween(from, to time.Time) int {
	fa := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	ta := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(ta.Sub(fa) / (24 * time.Hour))
}
