package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/source"
)

var (
	// Extraction metrics
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_extractions_total",
			Help: "Total number of recording extractions by origin and result",
		},
		[]string{"origin", "result"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rewind_extraction_duration_seconds",
			Help:    "Duration of decode, split and validation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"origin"},
	)

	PayloadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rewind_payload_bytes",
			Help:    "Size of acquired recording payloads before decoding",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"origin"},
	)

	EventsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewind_events_loaded_total",
			Help: "Total number of events bound to sessions",
		},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewind_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	DuplicateBinds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rewind_duplicate_binds_total",
			Help: "Total number of rejected second loads into a bound session",
		},
	)

	// Websocket metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rewind_websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewind_rate_limit_hits_total",
			Help: "Total number of requests rejected by the ingestion limiter",
		},
		[]string{"route"},
	)
)

// Result values for ExtractionsTotal.
const (
	ResultOK          = "ok"
	ResultUnsupported = "unsupported_file"
	ResultDecode      = "decode_error"
	ResultParse       = "parse_error"
	ResultMissing     = "missing_events"
	ResultEmpty       = "empty_stream"
	ResultInvalid     = "invalid_event"
	ResultFetch       = "fetch_error"
	ResultTooLarge    = "too_large"
	ResultDuplicate   = "already_bound"
	ResultOther       = "error"
)

// Result classifies err into a low-cardinality label value.
func Result(err error) string {
	var fe *source.FetchError
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, recording.ErrUnsupportedFile):
		return ResultUnsupported
	case errors.Is(err, recording.ErrDecode):
		return ResultDecode
	case errors.Is(err, recording.ErrParse):
		return ResultParse
	case errors.Is(err, recording.ErrMissingEvents):
		return ResultMissing
	case errors.Is(err, recording.ErrEmptyStream):
		return ResultEmpty
	case errors.Is(err, recording.ErrInvalidEvent):
		return ResultInvalid
	case errors.Is(err, source.ErrTooLarge):
		return ResultTooLarge
	case errors.As(err, &fe):
		return ResultFetch
	default:
		return ResultOther
	}
}
