// Package schedule holds the interval model: busy windows on a day, collision
// detection, and the free-slot ladder.
package schedule

import (
	"sort"
	"time"

	"github.com/agendly/agendly/services/booking-service/internal/timeutil"
)

// Hours is the business day the calculator operates within, in minutes from
// midnight.
type Hours struct {
	Open     int
	Close    int
	SlotStep int
}

// DefaultHours is 08:00-18:00 with 15-minute slot starts.
var DefaultHours = Hours{Open: 480, Close: 1080, SlotStep: 15}

// Window is a half-open busy interval [Start, End) in minutes from midnight.
// Appointments that merely touch endpoints do not overlap.
type Window struct {
	Start int
	End   int
}

// Collides reports whether [start, end) overlaps any window. The comparison
// is strict on both sides so back-to-back bookings are allowed.
func Collides(start, end int, windows []Window) bool {
	for _, w := range windows {
		if start < w.End && w.Start < end {
			return true
		}
	}
	return false
}

// BuildWindows projects appointment instants onto one day's minute axis.
// Every instant is assumed to fall on the given day.
func BuildWindows(starts []time.Time, durations []int) []Window {
	windows := make([]Window, 0, len(starts))
	for i, at := range starts {
		s := timeutil.MinuteOfDay(at)
		windows = append(windows, Window{Start: s, End: s + durations[i]})
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	return windows
}

// AvailableTimes walks candidate start times from open to close in SlotStep
// increments and keeps the ones where a service of the given duration fits
// without colliding with a busy window. A slot whose end would run past
// closing is excluded, and since candidates only get later, the walk stops
// there.
func AvailableTimes(durationMinutes int, busy []Window, hours Hours) []string {
	times := []string{}
	for start := hours.Open; start <= hours.Close; start += hours.SlotStep {
		end := start + durationMinutes
		if end > hours.Close {
			break
		}
		if Collides(start, end, busy) {
			continue
		}
		times = append(times, timeutil.FormatClock(start))
	}
	return times
}
