// Package clock abstracts wall-clock access so domain code stays deterministic in tests.
package clock

import "time"

// Clock supplies the current instant to factories and mutators.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock is the production Clock constructor.
func NewSystemClock() Clock { return SystemClock{} }

// Fixed returns a clock pinned to the given instant.
func Fixed(at time.Time) Clock { return fixedClock{at: at.UTC()} }

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }
