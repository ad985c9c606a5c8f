// Package timeutil handles the wall-clock arithmetic the scheduling core
// runs on. Dates are calendar days, clocks are minutes from midnight, and
// every instant is UTC.
package timeutil

import (
	"fmt"
	"time"
)

// ParseDate parses a strict YYYY-MM-DD calendar date into UTC midnight.
// Impossible dates such as 2026-02-30 are rejected.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseClock parses a strict HH:MM wall-clock time into minutes from
// midnight. Both fields must be exactly two digits.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// Combine anchors a minute-of-day onto a calendar date, producing a UTC
// instant.
func Combine(date time.Time, minute int) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(minute) * time.Minute)
}

// MinuteOfDay projects an instant back onto its minute from UTC midnight.
func MinuteOfDay(t time.Time) int {
	u := t.UTC()
	return u.Hour()*60 + u.Minute()
}

// FormatClock renders a minute-of-day as HH:MM.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// FormatDate renders an instant's UTC calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Split breaks an instant into its UTC date and clock components. Used when
// an update supplies only one of the two.
func Split(t time.Time) (date string, clock string) {
	u := t.UTC()
	return u.Format("2006-01-02"), u.Format("15:04")
}
