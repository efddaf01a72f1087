package clock

import (
	"time"

	internalclock "github.com/SmitUplenchwar2687/Rewind/internal/clock"
)

// Clock abstracts time so session expiry and rate limits can be tested.
type Clock = internalclock.Clock

// Real delegates to the standard time package.
type Real = internalclock.Real

// Virtual is a controllable clock for tests.
type Virtual = internalclock.Virtual

// NewReal creates a wall-clock implementation.
func NewReal() Real {
	return internalclock.NewReal()
}

// NewVirtual creates a virtual clock starting at the given time.
func NewVirtual(start time.Time) *Virtual {
	return internalclock.NewVirtual(start)
}
