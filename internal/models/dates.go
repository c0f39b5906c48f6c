package models

import (
	"time"

	"gorm.io/datatypes"
)

// Day returns the calendar date of t as a UTC midnight datatypes.Date.
func Day(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Normalize drops clock and zone from d.
func Normalize(d datatypes.Date) datatypes.Date {
	return Day(time.Time(d))
}

// NormalizePtr is Normalize for optional dates.
func NormalizePtr(d *datatypes.Date) *datatypes.Date {
	if d == nil {
		return nil
	}
	n := Normalize(*d)
	return &n
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (datatypes.Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return datatypes.Date{}, err
	}
	return Day(t), nil
}

// DayPtr is ParseDay for optional dates: an empty string yields nil.
func DayPtr(s string) (*datatypes.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := ParseDay(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FormatDay renders d as YYYY-MM-DD.
func FormatDay(d datatypes.Date) string {
	return time.Time(d).Format(time.DateOnly)
}

// FormatDayPtr renders an optional date, "open" when absent.
func FormatDayPtr(d *datatypes.Date) string {
	if d == nil {
		return "open"
	}
	return FormatDay(*d)
}

// CompareDays orders two dates by calendar day only, ignoring clock and zone.
func CompareDays(a, b datatypes.Date) int {
	ay, am, ad := time.Time(a).Date()
	by, bm, bd := time.Time(b).Date()
	switch {
	case ay != by:
		return cmpInt(ay, by)
	case am != bm:
		return cmpInt(int(am), int(bm))
	default:
		return cmpInt(ad, bd)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
