package clock

import (
	"sync"
	"time"
)

// Virtual only moves when told to. Safe for concurrent use.
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	pending []timer
}

type timer struct {
	at time.Time
	ch chan time.Time
}

// NewVirtual creates a Virtual clock reading start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// After returns a channel that fires from Advance once d has elapsed.
// Non-positive durations fire immediately.
func (v *Virtual) After(d time.Duration) <-chan time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- v.now
		return ch
	}
	v.pending = append(v.pending, timer{at: v.now.Add(d), ch: ch})
	return ch
}

// Advance moves the clock forward and fires due timers. Panics on a
// negative duration.
func (v *Virtual) Advance(d time.Duration) {
	if d < 0 {
		panic("clock: negative advance")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.now = v.now.Add(d)
	kept := v.pending[:0]
	for _, t := range v.pending {
		if t.at.After(v.now) {
			kept = append(kept, t)
			continue
		}
		t.ch <- v.now
	}
	v.pending = kept
}

// Pending reports how many timers have not fired yet.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}
