// Package clock provides an injectable time source so lifecycle timestamps
// (generated_at, expires_at, download cutoffs) are deterministic in tests.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by time.Now.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Fixed returns a Clock frozen at t. Intended for tests.
func Fixed(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// FixedClock is a manually advanced Clock.
type FixedClock struct {
	t time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.t = t
}
