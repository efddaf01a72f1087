package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SmitUplenchwar2687/Rewind/internal/logging"
	"github.com/SmitUplenchwar2687/Rewind/internal/metrics"
	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/source"
)

var tracer = otel.Tracer("github.com/SmitUplenchwar2687/Rewind/internal/session")

// Notifier is told about every successful bind.
type Notifier interface {
	NotifyBound(ctx context.Context, s *Session, events recording.Stream)
}

// Fetcher downloads a recording by URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (recording.Payload, error)
}

// Loader is the extraction boundary: every acquisition path goes through
// the same Extractor, and every failure is logged with the session ID
// before being returned.
type Loader struct {
	manager        *Manager
	extractor      *recording.Extractor
	fetcher        Fetcher
	maxUploadBytes int64
	notifier       Notifier
	logger         *slog.Logger
}

// LoaderConfig wires a Loader. Nil Extractor and Fetcher get defaults.
type LoaderConfig struct {
	Manager        *Manager
	Extractor      *recording.Extractor
	Fetcher        Fetcher
	MaxUploadBytes int64
	Notifier       Notifier
	Logger         *slog.Logger
}

func NewLoader(cfg LoaderConfig) *Loader {
	l := &Loader{
		manager:        cfg.Manager,
		extractor:      cfg.Extractor,
		fetcher:        cfg.Fetcher,
		maxUploadBytes: cfg.MaxUploadBytes,
		notifier:       cfg.Notifier,
		logger:         cfg.Logger,
	}
	if l.extractor == nil {
		l.extractor = recording.NewExtractor()
	}
	if l.fetcher == nil {
		l.fetcher = source.NewFetcher(nil, 30*time.Second, 0)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// FromUpload gates, reads and extracts an uploaded file, then binds it to
// session id. origin is OriginUpload for the page and OriginPush for the CLI.
func (l *Loader) FromUpload(ctx context.Context, id, name, mimeType string, r io.Reader, origin string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "session.FromUpload")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id), attribute.String("file.name", name))

	p, err := source.FromUpload(name, mimeType, r, l.maxUploadBytes)
	if err != nil {
		return nil, l.fail(ctx, span, id, origin, err)
	}
	return l.load(ctx, span, id, p, origin)
}

// FromURL fetches rawURL and binds the extracted stream to session id.
func (l *Loader) FromURL(ctx context.Context, id, rawURL string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "session.FromURL")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id), attribute.String("url.full", rawURL))

	// Fail fast on unknown sessions before touching the network.
	if _, err := l.manager.Get(ctx, id); err != nil {
		return nil, l.fail(ctx, span, id, OriginURL, err)
	}

	p, err := l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, l.fail(ctx, span, id, OriginURL, err)
	}
	return l.load(ctx, span, id, p, OriginURL)
}

func (l *Loader) load(ctx context.Context, span trace.Span, id string, p recording.Payload, origin string) (*Session, error) {
	metrics.PayloadBytes.WithLabelValues(origin).Observe(float64(len(p.Data)))

	start := time.Now()
	stream, err := l.extractor.Extract(p)
	metrics.ExtractionDuration.WithLabelValues(origin).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, l.fail(ctx, span, id, origin, err)
	}

	s, err := l.manager.Bind(ctx, id, stream, origin)
	if err != nil {
		if errors.Is(err, ErrAlreadyBound) {
			metrics.ExtractionsTotal.WithLabelValues(origin, metrics.ResultDuplicate).Inc()
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		return nil, l.fail(ctx, span, id, origin, err)
	}

	metrics.ExtractionsTotal.WithLabelValues(origin, metrics.ResultOK).Inc()
	span.SetAttributes(attribute.Int("events", len(stream)))
	if l.notifier != nil {
		l.notifier.NotifyBound(ctx, s, stream)
	}
	return s, nil
}

func (l *Loader) fail(ctx context.Context, span trace.Span, id, origin string, err error) error {
	metrics.ExtractionsTotal.WithLabelValues(origin, metrics.Result(err)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	l.logger.WarnContext(ctx, "loading recording failed",
		logging.SessionID(id), logging.Origin(origin), logging.Err(err))
	return err
}
