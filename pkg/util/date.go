package util

import "time"

// MonthStart returns midnight of the first day of t's month in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// AddMonths moves a month start by n calendar months.
func AddMonths(monthStart time.Time, n int) time.Time {
	return time.Date(monthStart.Year(), monthStart.Month()+time.Month(n), 1, 0, 0, 0, 0, monthStart.Location())
}

// MonthWindow returns [from, to) covering the `months` calendar months that end with the month of now.
func MonthWindow(now time.Time, months int, loc *time.Location) (time.Time, time.Time) {
	current := MonthStart(now, loc)
	return AddMonths(current, -(months - 1)), AddMonths(current, 1)
}

// MonthIndex is the zero-based calendar month (January = 0).
func MonthIndex(t time.Time) int {
	return int(t.Month()) - 1
}

// MonthsBetween counts whole calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
