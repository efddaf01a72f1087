package storage

import (
	"context"
	"errors"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendPebble = "pebble"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage: closed")

// Storage holds session state. Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the value for key, or nil, nil if it is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for key. exp == 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, exp time.Duration) error

	// SetIfAbsent stores value only if key is absent or expired, and
	// reports whether it did. The check and the write are atomic.
	SetIfAbsent(ctx context.Context, key string, value []byte, exp time.Duration) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
