package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SmitUplenchwar2687/Rewind/internal/logging"
	"github.com/SmitUplenchwar2687/Rewind/internal/metrics"
	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/session"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for a local viewer.
	},
}

// Notification is sent to every client watching a session when it binds.
type Notification struct {
	SessionID string           `json:"session_id"`
	State     session.State    `json:"state"`
	Origin    string           `json:"origin"`
	Events    recording.Stream `json:"events"`
}

// Hub tracks websocket clients by the session they watch.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn      *websocket.Conn
	sessionID string

	// gorilla allows one concurrent writer per connection.
	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Serve upgrades the connection and subscribes it to sessionID. When
// initial is non-nil it is sent right away, so a page that connects after
// the bind still mounts.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, initial *Notification) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", logging.SessionID(sessionID), logging.Err(err))
		return
	}

	c := &client{conn: conn, sessionID: sessionID}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WebsocketClients.Inc()

	if initial != nil {
		if data, err := json.Marshal(initial); err == nil {
			_ = c.write(data)
		}
	}

	// The read loop only detects disconnects.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		metrics.WebsocketClients.Dec()
	}
	c.conn.Close()
}

// NotifyBound implements session.Notifier.
func (h *Hub) NotifyBound(ctx context.Context, s *session.Session, events recording.Stream) {
	data, err := json.Marshal(Notification{
		SessionID: s.ID,
		State:     s.State,
		Origin:    s.Origin,
		Events:    events,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "websocket marshal failed", logging.SessionID(s.ID), logging.Err(err))
		return
	}

	for _, c := range h.watching(s.ID) {
		if err := c.write(data); err != nil {
			h.logger.WarnContext(ctx, "websocket write failed", logging.SessionID(s.ID), logging.Err(err))
			h.remove(c)
		}
	}
}

func (h *Hub) watching(sessionID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*client
	for c := range h.clients {
		if c.sessionID == sessionID {
			out = append(out, c)
		}
	}
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.remove(c)
	}
}
