// Package clock lets session expiry and rate limiting run against a
// controllable time source in tests.
package clock

import "time"

// Clock is the time source used by storage expiry, session timestamps and
// the ingestion rate limiter.
type Clock interface {
	Now() time.Time
	// After fires once the clock has moved d past the current time.
	After(d time.Duration) <-chan time.Time
}

// Real uses the wall clock.
type Real struct{}

// NewReal returns the wall clock.
func NewReal() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }
