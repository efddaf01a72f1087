package storage

import (
	"context"

	internalstorage "github.com/SmitUplenchwar2687/Rewind/internal/storage"
	"github.com/SmitUplenchwar2687/Rewind/pkg/clock"
)

const (
	BackendMemory = internalstorage.BackendMemory
	BackendRedis  = internalstorage.BackendRedis
	BackendPebble = internalstorage.BackendPebble
)

// Storage abstracts the backend for session records and bound streams.
type Storage = internalstorage.Storage

// Options selects and configures a backend.
type Options = internalstorage.Options

// RedisConfig configures the Redis backend.
type RedisConfig = internalstorage.RedisConfig

// PebbleConfig configures the on-disk backend.
type PebbleConfig = internalstorage.PebbleConfig

// MemoryStorage is an in-memory storage backend.
type MemoryStorage = internalstorage.MemoryStorage

// NewMemoryStorage creates a new in-memory storage using the given clock.
func NewMemoryStorage(c clock.Clock) *MemoryStorage {
	return internalstorage.NewMemoryStorage(c)
}

// Open builds the backend named by opts.Backend.
func Open(ctx context.Context, opts Options, c clock.Clock) (Storage, error) {
	return internalstorage.Open(ctx, opts, c)
}
