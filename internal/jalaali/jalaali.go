package jalaali

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// OffsetMinutes is the fixed UTC offset all conversions use (+03:30).
// The adapter never consults the host timezone.
const OffsetMinutes = 210

// Tehran is the fixed-offset location used for every conversion.
var Tehran = time.FixedZone("Asia/Tehran", OffsetMinutes*60)

// Date is a calendar day expressible in both calendar systems.
type Date struct {
	Year  int
	Month int
	Day   int

	gregorian time.Time // start of day in the fixed offset
}

// Gregorian returns the start of the day in the fixed offset.
func (d Date) Gregorian() time.Time {
	return d.gregorian
}

// GregorianYMD returns the Gregorian day label (YYYY-MM-DD).
func (d Date) GregorianYMD() string {
	return d.gregorian.Format("2006-01-02")
}

// Label returns the Jalaali day label (jYYYY/jMM/jDD).
func (d Date) Label() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// Weekday returns the weekday index 0 (Sunday) .. 6 (Saturday).
// Thursday (4) and Friday (5) are the designated rest days.
func (d Date) Weekday() int {
	return int(d.gregorian.Weekday())
}

// InvalidDateError reports a Jalaali year/month/day combination that does
// not exist, e.g. day 30 in a 29-day Esfand.
type InvalidDateError struct {
	Year  int
	Month int
	Day   int
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid Jalaali date %04d/%02d/%02d", e.Year, e.Month, e.Day)
}

// Now returns the current instant in the fixed offset.
func Now() time.Time {
	return time.Now().In(Tehran)
}

// ToJalaali converts a Gregorian instant to its Jalaali calendar day at the
// fixed offset.
func ToJalaali(t time.Time) Date {
	local := t.In(Tehran)
	pt := ptime.New(local)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Tehran)
	return Date{
		Year:      pt.Year(),
		Month:     int(pt.Month()),
		Day:       pt.Day(),
		gregorian: start,
	}
}

// FromJalaali constructs a Date from Jalaali components. Combinations that
// do not exist are rejected with InvalidDateError, never coerced.
func FromJalaali(year, month, day int) (Date, error) {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return Date{}, &InvalidDateError{Year: year, Month: month, Day: day}
	}
	max, err := DaysInMonth(year, month)
	if err != nil {
		return Date{}, err
	}
	if day > max {
		return Date{}, &InvalidDateError{Year: year, Month: month, Day: day}
	}

	g := ptime.Date(year, ptime.Month(month), day, 0, 0, 0, 0, Tehran).Time()
	// The underlying library normalizes out-of-range components the way
	// time.Date does; a round trip detects any coercion that slipped past
	// the bounds checks above.
	back := ptime.New(g)
	if back.Year() != year || int(back.Month()) != month || back.Day() != day {
		return Date{}, &InvalidDateError{Year: year, Month: month, Day: day}
	}

	return Date{Year: year, Month: month, Day: day, gregorian: g}, nil
}

// DaysInMonth returns the number of days in the given Jalaali month.
func DaysInMonth(year, month int) (int, error) {
	if year < 1 || month < 1 || month > 12 {
		return 0, &InvalidDateError{Year: year, Month: month, Day: 1}
	}
	switch {
	case month <= 6:
		return 31, nil
	case month <= 11:
		return 30, nil
	}
	// Esfand runs 29 or 30 days depending on the leap cycle. Step 29 days
	// past Esfand 1: leap years stay in Esfand.
	esfand1 := ptime.Date(year, ptime.Esfand, 1, 12, 0, 0, 0, Tehran).Time()
	if ptime.New(esfand1.AddDate(0, 0, 29)).Month() == ptime.Esfand {
		return 30, nil
	}
	return 29, nil
}

// MonthRange returns the start-of-day of the first day and the end-of-day of
// the last day of the given Jalaali month, both in the fixed offset.
func MonthRange(year, month int) (time.Time, time.Time, error) {
	first, err := FromJalaali(year, month, 1)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	days, err := DaysInMonth(year, month)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	last, err := FromJalaali(year, month, days)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := first.Gregorian()
	end := last.Gregorian().Add(24*time.Hour - time.Nanosecond)
	return start, end, nil
}

// MonthName returns the Persian month name for 1..12 ("Farvardin" .. "Esfand").
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return ptime.Month(month).String()
}

// Format renders the Jalaali day label of a Gregorian instant.
func Format(t time.Time) string {
	return ToJalaali(t).Label()
}

// FormatMinute renders a Jalaali timestamp down to the minute.
func FormatMinute(t time.Time) string {
	local := t.In(Tehran)
	return fmt.Sprintf("%s %02d:%02d", ToJalaali(local).Label(), local.Hour(), local.Minute())
}

// NormalizeDigits replaces Extended Arabic-Indic (Persian) and Arabic-Indic
// digit glyphs with their ASCII equivalents. Other runes pass through.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹': // U+06F0..U+06F9
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩': // U+0660..U+0669
			return '0' + (r - '٠')
		}
		return r
	}, s)
}

// ParseNumber parses a numeric value that may arrive with non-ASCII digit
// glyphs. Remaining non-numeric content is rejected.
func ParseNumber(s string) (int, error) {
	normalized := strings.TrimSpace(NormalizeDigits(s))
	return strconv.Atoi(normalized)
}

// ParseDate parses a Jalaali day label such as "1404/01/01", accepting
// non-ASCII digit glyphs.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("malformed Jalaali date %q", s)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := ParseNumber(part)
		if err != nil {
			return Date{}, fmt.Errorf("malformed Jalaali date %q: %w", s, err)
		}
		nums[i] = n
	}
	return FromJalaali(nums[0], nums[1], nums[2])
}
