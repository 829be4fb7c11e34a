package dateutil

import "time"

// StartOfDayIn returns the start of the day (00:00:00) holding the given
// instant, evaluated in loc
func StartOfDayIn(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDayIn returns the last nanosecond of the day holding the given
// instant, evaluated in loc
func EndOfDayIn(t time.Time, loc *time.Location) time.Time {
	return StartOfDayIn(t, loc).Add(24*time.Hour - time.Nanosecond)
}

// IsSameDay returns true if two instants fall on the same calendar day in loc
func IsSameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// YMD formats an instant as yyyy-mm-dd in loc
func YMD(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// FormatISO8601 formats date to ISO 8601 format with timezone
// Example: 2025-01-15T10:00:00.000+0330
func FormatISO8601(date time.Time) string {
	return date.Format("2006-01-02T15:04:05.000-0700")
}
