package booking

import "time"

const dateLayout = "2006-01-02"

// startOfDay returns local midnight of t's calendar date in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// monthBounds returns [first day of day's month, first day of next month).
func monthBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 1, 0)
}

// weekBounds returns [Sunday 00:00, next Sunday 00:00) around day.
func weekBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day()-int(day.Weekday()), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 7)
}

// endOfDay is 23:59:59 of the day starting at midnight.
func endOfDay(midnight time.Time) time.Time {
	return midnight.AddDate(0, 0, 1).Add(-time.Second)
}
