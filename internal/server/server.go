package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
	"github.com/SmitUplenchwar2687/Rewind/internal/limiter"
	"github.com/SmitUplenchwar2687/Rewind/internal/logging"
	"github.com/SmitUplenchwar2687/Rewind/internal/metrics"
	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/session"
	"github.com/SmitUplenchwar2687/Rewind/internal/source"
)

// OriginHeader lets a client declare how an upload was produced.
const OriginHeader = "X-Rewind-Origin"

// multipartSlack covers multipart framing on top of the file size cap.
const multipartSlack = 1 << 20

// Config wires a Server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxUploadBytes int64
	Player         session.PlayerOptions
	TrustProxy     bool // take the client address from X-Forwarded-For / X-Real-IP

	Manager *session.Manager
	Loader  *session.Loader
	Hub     *Hub
	Limiter limiter.Limiter // nil disables ingestion limits
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Server hosts the player page, the session API and the websocket hub.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	cfg        Config
	logger     *slog.Logger
}

// New creates a Server. Clock, Logger, Hub and Player default when unset.
func New(cfg Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewReal()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub(cfg.Logger)
	}
	if cfg.Player.Width == 0 {
		cfg.Player = session.DefaultPlayerOptions()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = source.DefaultMaxBytes
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.routes()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      otelhttp.NewHandler(s.router, "rewind"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(Logging(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePlayer)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/events", s.handleEvents)
		r.With(RateLimit(s.cfg.Limiter, s.cfg.Clock, "upload")).Post("/{id}/upload", s.handleUpload)
		r.With(RateLimit(s.cfg.Limiter, s.cfg.Clock, "load")).Post("/{id}/load", s.handleLoad)
	})

	s.router = r
}

// Handler exposes the instrumented router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Manager.Create(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "creating session failed", logging.Err(err))
		http.Error(w, "could not create a session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err = playerTemplate.Execute(w, playerPage{
		SessionID: sess.ID,
		URL:       r.URL.Query().Get("url"),
		Player:    s.cfg.Player,
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "rendering player failed", logging.SessionID(sess.ID), logging.Err(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"time":       s.cfg.Clock.Now().UTC().Format(time.RFC3339),
		"ws_clients": s.cfg.Hub.ClientCount(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Manager.Create(r.Context())
	if err != nil {
		s.writeFailure(w, r, "", session.OriginUpload, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.cfg.Manager.Get(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, id, session.OriginUpload, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	events, err := s.cfg.Manager.Stream(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, id, session.OriginUpload, err)
		return
	}
	if events == nil {
		events = recording.Stream{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// loadResponse is returned by both ingestion routes.
type loadResponse struct {
	Session *session.Session `json:"session"`
	Events  recording.Stream `json:"events"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	origin := session.OriginUpload
	if r.Header.Get(OriginHeader) == session.OriginPush {
		origin = session.OriginPush
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartSlack)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = source.ErrTooLarge
		} else {
			s.logger.WarnContext(r.Context(), "reading upload failed", logging.SessionID(id), logging.Err(err))
			writeError(w, http.StatusBadRequest, `Missing form file "file".`, "bad_request")
			return
		}
		s.writeFailure(w, r, id, origin, err)
		return
	}
	defer file.Close()

	sess, err := s.cfg.Loader.FromUpload(r.Context(), id, header.Filename, header.Header.Get("Content-Type"), file, origin)
	if err != nil {
		s.writeFailure(w, r, id, origin, err)
		return
	}
	s.writeLoaded(w, r, sess)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, `Request body must be {"url": "..."}.`, "bad_request")
		return
	}

	sess, err := s.cfg.Loader.FromURL(r.Context(), id, req.URL)
	if err != nil {
		s.writeFailure(w, r, id, session.OriginURL, err)
		return
	}
	s.writeLoaded(w, r, sess)
}

func (s *Server) writeLoaded(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	events, err := s.cfg.Manager.Stream(r.Context(), sess.ID)
	if err != nil {
		s.writeFailure(w, r, sess.ID, sess.Origin, err)
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{Session: sess, Events: events})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	sess, err := s.cfg.Manager.Get(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, id, session.OriginUpload, err)
		return
	}

	var initial *Notification
	if sess.State == session.StateBound {
		events, err := s.cfg.Manager.Stream(r.Context(), id)
		if err != nil {
			s.writeFailure(w, r, id, sess.Origin, err)
			return
		}
		initial = &Notification{SessionID: id, State: sess.State, Origin: sess.Origin, Events: events}
	}
	s.cfg.Hub.Serve(w, r, id, initial)
}

// writeFailure maps the error taxonomy to a status code and the page message.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, id, origin string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", logging.SessionID(id), logging.Err(err))
	}
	writeJSON(w, status, errorBody{
		Error:  session.UserMessage(err, origin),
		Code:   errorCode(err),
		Detail: err.Error(),
	})
}

func statusFor(err error) int {
	var fe *source.FetchError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAlreadyBound):
		return http.StatusConflict
	case errors.Is(err, recording.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, source.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &fe):
		return http.StatusBadGateway
	case errors.Is(err, recording.ErrDecode),
		errors.Is(err, recording.ErrParse),
		errors.Is(err, recording.ErrMissingEvents),
		errors.Is(err, recording.ErrEmptyStream),
		errors.Is(err, recording.ErrInvalidEvent):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	case errors.Is(err, session.ErrAlreadyBound):
		return metrics.ResultDuplicate
	default:
		return metrics.Result(err)
	}
}

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response failed", logging.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// Start listens on the configured address. It blocks until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener serves on ln. Tests use it with an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.logger.Info("rewind server listening", slog.String("addr", ln.Addr().String()))
	return s.httpServer.Serve(ln)
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.cfg.Hub.Close()
	return err
}
