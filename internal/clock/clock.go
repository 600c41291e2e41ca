// Package clock abstracts the current time.
package clock

import "time"

// Clock allows injecting time into the session store and start-date logic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Manual is a settable clock for tests.
type Manual struct {
	now time.Time
}

// NewManual returns a clock frozen at t until Advance or Set is called.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the frozen time.
func (m *Manual) Now() time.Time { return m.now }

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) { m.now = t }

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) { m.now = m.now.Add(d) }
