// Package limiter throttles ingestion requests per client.
package limiter

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

// Decision is the result of one check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	RetryAt   time.Time // zero when allowed
}

// RetryAfter is the wait until RetryAt, rounded up to whole seconds for the
// Retry-After header.
func (d Decision) RetryAfter(now time.Time) int {
	if d.RetryAt.IsZero() || !d.RetryAt.After(now) {
		return 0
	}
	wait := d.RetryAt.Sub(now)
	secs := int(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	return secs
}

// Config is the ingestion limit: Rate requests per Window with bursts up to
// Burst. A disabled config lets everything through.
type Config struct {
	Enabled bool          `mapstructure:"enabled" json:"enabled"`
	Rate    int           `mapstructure:"rate" json:"rate"`
	Window  time.Duration `mapstructure:"window" json:"window"`
	Burst   int           `mapstructure:"burst" json:"burst"`
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %d", c.Rate)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst must not be negative, got %d", c.Burst)
	}
	return nil
}
