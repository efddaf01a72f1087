package storage

import (
	"context"
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
)

// MemoryStorage keeps values in a map. Expiry is checked against a Clock so
// tests can move time. Safe for concurrent use.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]memItem
	clock clock.Clock

	stop     chan struct{}
	stopOnce sync.Once
}

type memItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStorage creates an empty store using c for expiry.
func NewMemoryStorage(c clock.Clock) *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string]memItem),
		clock: c,
		stop:  make(chan struct{}),
	}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok || s.expired(item) {
		return nil, nil
	}
	return append([]byte(nil), item.value...), nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte, exp time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = s.newItem(value, exp)
	return nil
}

func (s *MemoryStorage) SetIfAbsent(_ context.Context, key string, value []byte, exp time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[key]; ok && !s.expired(item) {
		return false, nil
	}
	s.items[key] = s.newItem(value, exp)
	return true, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Cleanup drops expired items.
func (s *MemoryStorage) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, item := range s.items {
		if s.expired(item) {
			delete(s.items, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until Close.
func (s *MemoryStorage) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		for {
			select {
			case <-s.stop:
				return
			case <-s.clock.After(interval):
				s.Cleanup()
			}
		}
	}()
}

// Len counts stored items, including expired ones not yet cleaned up.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close stops the cleanup loop.
func (s *MemoryStorage) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStorage) newItem(value []byte, exp time.Duration) memItem {
	item := memItem{value: append([]byte(nil), value...)}
	if exp > 0 {
		item.expiresAt = s.clock.Now().Add(exp)
	}
	return item
}

// expired must be called with s.mu held.
func (s *MemoryStorage) expired(item memItem) bool {
	return !item.expiresAt.IsZero() && !s.clock.Now().Before(item.expiresAt)
}
