package booking

import "time"

// Clock abstracts the current instant so lead-time rules are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock reads the real time in UTC.
func SystemClock() Clock { return systemClock{} }

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

// FixedClock always reports the given instant.
func FixedClock(at time.Time) Clock { return fixedClock{at: at} }
