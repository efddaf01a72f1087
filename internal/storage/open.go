package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
)

// Options selects and configures a backend.
type Options struct {
	Backend         string        `mapstructure:"backend" json:"backend"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval"`
	Redis           RedisConfig   `mapstructure:"redis" json:"redis"`
	Pebble          PebbleConfig  `mapstructure:"pebble" json:"pebble"`
}

// Open builds the backend named by opts.Backend. An empty name means memory.
func Open(ctx context.Context, opts Options, c clock.Clock) (Storage, error) {
	switch opts.Backend {
	case "", BackendMemory:
		s := NewMemoryStorage(c)
		s.StartCleanup(opts.CleanupInterval)
		return s, nil
	case BackendRedis:
		return NewRedisStorage(ctx, &opts.Redis)
	case BackendPebble:
		return NewPebbleStorage(opts.Pebble, c)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want %s, %s or %s)", opts.Backend, BackendMemory, BackendRedis, BackendPebble)
	}
}
