package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
)

// PebbleConfig configures the on-disk backend.
type PebbleConfig struct {
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
	// Sync forces a WAL fsync on every write.
	Sync bool `mapstructure:"sync" json:"sync"`
}

// Values are stored as an 8-byte big-endian expiry (unix nanos, 0 for none)
// followed by the payload.
const expiryHeaderLen = 8

// PebbleStorage keeps session state in a local pebble database.
type PebbleStorage struct {
	// mu serializes writes so SetIfAbsent can read then write atomically.
	mu    sync.Mutex
	db    *pebble.DB
	clock clock.Clock
	sync  pebble.WriteOptions

	closeOnce sync.Once
	closeErr  error
}

// NewPebbleStorage opens or creates the database at cfg.DataDir.
func NewPebbleStorage(cfg PebbleConfig, c clock.Clock) (*PebbleStorage, error) {
	if cfg.DataDir == "" {
		return nil, errors.New("pebble: data_dir is required")
	}

	db, err := pebble.Open(cfg.DataDir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble at %s: %w", cfg.DataDir, err)
	}

	s := &PebbleStorage{db: db, clock: c, sync: *pebble.NoSync}
	if cfg.Sync {
		s.sync = *pebble.Sync
	}
	return s, nil
}

func (s *PebbleStorage) Get(_ context.Context, key string) ([]byte, error) {
	val, ok, err := s.get(key)
	if err != nil || !ok {
		return nil, err
	}
	return val, nil
}

func (s *PebbleStorage) Set(_ context.Context, key string, value []byte, exp time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(key, value, exp)
}

func (s *PebbleStorage) SetIfAbsent(_ context.Context, key string, value []byte, exp time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.get(key)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := s.put(key, value, exp); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PebbleStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Delete([]byte(key), &s.sync); err != nil {
		return fmt.Errorf("pebble delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database. It is idempotent.
func (s *PebbleStorage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// get returns the live value for key. Expired entries read as absent.
func (s *PebbleStorage) get(key string) ([]byte, bool, error) {
	raw, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get %s: %w", key, err)
	}
	defer closer.Close()

	if len(raw) < expiryHeaderLen {
		return nil, false, fmt.Errorf("pebble get %s: corrupt value", key)
	}
	if exp := int64(binary.BigEndian.Uint64(raw)); exp != 0 && !s.clock.Now().Before(time.Unix(0, exp)) {
		return nil, false, nil
	}
	return append([]byte(nil), raw[expiryHeaderLen:]...), true, nil
}

func (s *PebbleStorage) put(key string, value []byte, exp time.Duration) error {
	buf := make([]byte, expiryHeaderLen+len(value))
	if exp > 0 {
		binary.BigEndian.PutUint64(buf, uint64(s.clock.Now().Add(exp).UnixNano()))
	}
	copy(buf[expiryHeaderLen:], value)

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte(key), buf, nil); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	if err := b.Commit(&s.sync); err != nil {
		return fmt.Errorf("pebble commit %s: %w", key, err)
	}
	return nil
}
