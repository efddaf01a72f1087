// Package session tracks the lifetime of a player page: a session starts
// Empty and is bound to exactly one event stream.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
	"github.com/SmitUplenchwar2687/Rewind/internal/logging"
	"github.com/SmitUplenchwar2687/Rewind/internal/metrics"
	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/storage"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrAlreadyBound = errors.New("player already exists")
)

// DefaultTTL bounds how long an abandoned session is kept.
const DefaultTTL = 24 * time.Hour

type State string

const (
	StateEmpty State = "empty"
	StateBound State = "bound"
)

// Origin names how a stream reached a session.
const (
	OriginUpload = "upload"
	OriginURL    = "url"
	OriginPush   = "push"
)

// Session is the externally visible view of a page session.
type Session struct {
	ID        string             `json:"id"`
	State     State              `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
	BoundAt   *time.Time         `json:"bound_at,omitempty"`
	Origin    string             `json:"origin,omitempty"`
	Summary   *recording.Summary `json:"summary,omitempty"`
}

type record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type binding struct {
	Origin  string            `json:"origin"`
	BoundAt time.Time         `json:"bound_at"`
	Summary recording.Summary `json:"summary"`
	Events  recording.Stream  `json:"events"`
}

// Manager stores sessions in a storage backend. The Empty to Bound
// transition is a single SetIfAbsent on the binding key, so concurrent
// loads into one session produce exactly one winner.
type Manager struct {
	store  storage.Storage
	clock  clock.Clock
	ttl    time.Duration
	logger *slog.Logger
}

// NewManager creates a Manager. ttl <= 0 uses DefaultTTL.
func NewManager(store storage.Storage, c clock.Clock, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, clock: c, ttl: ttl, logger: logger}
}

func recordKey(id string) string  { return "session:" + id }
func bindingKey(id string) string { return "session:" + id + ":stream" }

// Create starts a new Empty session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	rec := record{ID: uuid.NewString(), CreatedAt: m.clock.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, recordKey(rec.ID), data, m.ttl); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	metrics.SessionsCreated.Inc()
	m.logger.DebugContext(ctx, "session created", logging.SessionID(rec.ID))
	return &Session{ID: rec.ID, State: StateEmpty, CreatedAt: rec.CreatedAt}, nil
}

// Get returns the session with id, or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	rec, err := m.record(ctx, id)
	if err != nil {
		return nil, err
	}
	s := &Session{ID: rec.ID, State: StateEmpty, CreatedAt: rec.CreatedAt}

	b, err := m.binding(ctx, id)
	if err != nil {
		return nil, err
	}
	if b != nil {
		s.apply(b)
	}
	return s, nil
}

// Bind attaches stream to an Empty session. A session that is already bound
// keeps its first stream and the call fails with ErrAlreadyBound.
func (m *Manager) Bind(ctx context.Context, id string, stream recording.Stream, origin string) (*Session, error) {
	rec, err := m.record(ctx, id)
	if err != nil {
		return nil, err
	}

	b := &binding{
		Origin:  origin,
		BoundAt: m.clock.Now().UTC(),
		Summary: stream.Summarize(),
		Events:  stream,
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding stream: %w", err)
	}

	ok, err := m.store.SetIfAbsent(ctx, bindingKey(id), data, m.remainingTTL(rec))
	if err != nil {
		return nil, fmt.Errorf("binding session: %w", err)
	}
	if !ok {
		metrics.DuplicateBinds.Inc()
		m.logger.WarnContext(ctx, "Player already exists. Please reload the page.",
			logging.SessionID(id), logging.Origin(origin))
		return nil, ErrAlreadyBound
	}

	metrics.EventsLoaded.Add(float64(len(stream)))
	m.logger.InfoContext(ctx, "session bound",
		logging.SessionID(id), logging.Origin(origin), logging.Events(len(stream)))

	s := &Session{ID: rec.ID, CreatedAt: rec.CreatedAt}
	s.apply(b)
	return s, nil
}

// Stream returns the events bound to id. An Empty session yields a nil
// stream and no error.
func (m *Manager) Stream(ctx context.Context, id string) (recording.Stream, error) {
	if _, err := m.record(ctx, id); err != nil {
		return nil, err
	}
	b, err := m.binding(ctx, id)
	if err != nil || b == nil {
		return nil, err
	}
	return b.Events, nil
}

// Delete drops a session and its stream.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, bindingKey(id)); err != nil {
		return err
	}
	return m.store.Delete(ctx, recordKey(id))
}

func (m *Manager) record(ctx context.Context, id string) (*record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	data, err := m.store.Get(ctx, recordKey(id))
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if data == nil {
		return nil, ErrNotFound
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &rec, nil
}

func (m *Manager) binding(ctx context.Context, id string) (*binding, error) {
	data, err := m.store.Get(ctx, bindingKey(id))
	if err != nil {
		return nil, fmt.Errorf("loading stream: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var b binding
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding stream %s: %w", id, err)
	}
	return &b, nil
}

// remainingTTL keeps the stream from outliving its session record.
func (m *Manager) remainingTTL(rec *record) time.Duration {
	left := rec.CreatedAt.Add(m.ttl).Sub(m.clock.Now())
	if left <= 0 {
		return time.Millisecond
	}
	return left
}

func (s *Session) apply(b *binding) {
	boundAt := b.BoundAt
	sum := b.Summary
	s.State = StateBound
	s.Origin = b.Origin
	s.BoundAt = &boundAt
	s.Summary = &sum
}
