package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
)

// TokenBucket refills rate tokens per window for each key. A request spends
// one token; an empty bucket denies until the next token arrives.
type TokenBucket struct {
	clock    clock.Clock
	rate     float64 // tokens per second
	capacity int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewTokenBucket creates a limiter. burst <= 0 means burst = rate.
func NewTokenBucket(rate int, window time.Duration, burst int, c clock.Clock) *TokenBucket {
	if burst <= 0 {
		burst = rate
	}
	return &TokenBucket{
		clock:    c,
		rate:     float64(rate) / window.Seconds(),
		capacity: burst,
		buckets:  make(map[string]*bucket),
	}
}

// New builds the limiter described by cfg, or nil when it is disabled.
func New(cfg Config, c clock.Clock) *TokenBucket {
	if !cfg.Enabled {
		return nil
	}
	return NewTokenBucket(cfg.Rate, cfg.Window, cfg.Burst, c)
}

func (tb *TokenBucket) Allow(_ context.Context, key string) Decision {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.clock.Now()
	b := tb.refill(key, now)

	if b.tokens >= 1 {
		b.tokens--
		return Decision{Allowed: true, Remaining: int(b.tokens), Limit: tb.capacity}
	}

	wait := time.Duration((1 - b.tokens) / tb.rate * float64(time.Second))
	return Decision{Limit: tb.capacity, RetryAt: now.Add(wait)}
}

// Sweep forgets buckets that have refilled completely. Such buckets behave
// exactly like new ones, so dropping them changes no decision.
func (tb *TokenBucket) Sweep() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.clock.Now()
	removed := 0
	for key := range tb.buckets {
		if tb.refill(key, now).tokens >= float64(tb.capacity) {
			delete(tb.buckets, key)
			removed++
		}
	}
	return removed
}

// Len reports how many keys are tracked.
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

// refill must be called with tb.mu held.
func (tb *TokenBucket) refill(key string, now time.Time) *bucket {
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.capacity), lastFill: now}
		tb.buckets[key] = b
		return b
	}

	b.tokens += now.Sub(b.lastFill).Seconds() * tb.rate
	if b.tokens > float64(tb.capacity) {
		b.tokens = float64(tb.capacity)
	}
	b.lastFill = now
	return b
}
