package recording

import (
	"encoding/json"
	"fmt"

	"github.com/SmitUplenchwar2687/Rewind/internal/jsonsplit"
)

// Extractor turns payloads into validated event streams. It is the single
// entry point for every acquisition path. Safe for concurrent use.
type Extractor struct {
	mode               jsonsplit.Mode
	maxDecodedBytes    int64
	allowMissingEvents bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSplitMode selects how concatenated documents are separated.
func WithSplitMode(m jsonsplit.Mode) Option {
	return func(e *Extractor) { e.mode = m }
}

// WithMaxDecodedBytes caps the size of inflated gzip payloads.
func WithMaxDecodedBytes(n int64) Option {
	return func(e *Extractor) { e.maxDecodedBytes = n }
}

// WithAllowMissingEvents skips documents without an events array instead of
// failing the whole extraction.
func WithAllowMissingEvents(allow bool) Option {
	return func(e *Extractor) { e.allowMissingEvents = allow }
}

// NewExtractor creates an Extractor. The defaults are heuristic splitting,
// DefaultMaxDecodedBytes, and a hard failure on documents without events.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		mode:            jsonsplit.ModeHeuristic,
		maxDecodedBytes: DefaultMaxDecodedBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = NewExtractor()

// Extract runs the default extractor.
func Extract(p Payload) (Stream, error) {
	return defaultExtractor.Extract(p)
}

// Extract decodes p, splits it into documents, concatenates their events in
// document order and validates the result.
func (e *Extractor) Extract(p Payload) (Stream, error) {
	text, err := Decode(p, e.maxDecodedBytes)
	if err != nil {
		return nil, err
	}

	docs, err := jsonsplit.SplitMode(e.mode, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var stream Stream
	for i, doc := range docs {
		events, err := documentEvents(doc)
		if err != nil {
			if e.allowMissingEvents {
				continue
			}
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		stream = append(stream, events...)
	}

	if err := Validate(stream); err != nil {
		return nil, err
	}
	return stream, nil
}

// Validate checks the minimal shape the player needs: at least one event,
// and a first event with a type and a numeric timestamp.
func Validate(s Stream) error {
	if len(s) == 0 {
		return ErrEmptyStream
	}
	if _, err := s[0].Header(); err != nil {
		return err
	}
	return nil
}

func documentEvents(doc json.RawMessage) ([]Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrMissingEvents)
	}
	raw, ok := fields["events"]
	if !ok {
		return nil, ErrMissingEvents
	}
	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil || events == nil {
		return nil, fmt.Errorf("%w: events is not an array", ErrMissingEvents)
	}
	return events, nil
}
