// Package recording is the embeddable extraction API: split concatenated
// JSON, decode gzip and validate the event stream.
package recording

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SmitUplenchwar2687/Rewind/internal/jsonsplit"
	internalrecording "github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/source"
)

type (
	Payload   = internalrecording.Payload
	Hint      = internalrecording.Hint
	Event     = internalrecording.Event
	Stream    = internalrecording.Stream
	Summary   = internalrecording.Summary
	Extractor = internalrecording.Extractor
	Option    = internalrecording.Option
)

var (
	ErrUnsupportedFile = internalrecording.ErrUnsupportedFile
	ErrDecode          = internalrecording.ErrDecode
	ErrParse           = internalrecording.ErrParse
	ErrMissingEvents   = internalrecording.ErrMissingEvents
	ErrEmptyStream     = internalrecording.ErrEmptyStream
	ErrInvalidEvent    = internalrecording.ErrInvalidEvent
)

func NewExtractor(opts ...Option) *Extractor {
	return internalrecording.NewExtractor(opts...)
}

// WithStrictSplit uses the streaming decoder instead of the "}{" heuristic.
func WithStrictSplit() Option {
	return internalrecording.WithSplitMode(jsonsplit.ModeStrict)
}

// WithAllowMissingEvents skips documents without an events array.
func WithAllowMissingEvents(allow bool) Option {
	return internalrecording.WithAllowMissingEvents(allow)
}

// Extract runs the default pipeline on p.
func Extract(p Payload) (Stream, error) {
	return internalrecording.Extract(p)
}

// Split separates back-to-back JSON documents with the "}{" heuristic.
func Split(text []byte) ([]json.RawMessage, error) {
	return jsonsplit.Split(text)
}

// ExtractFile reads and extracts a local file.
func ExtractFile(path string) (Stream, error) {
	p, err := source.FromFile(path, 0)
	if err != nil {
		return nil, err
	}
	return Extract(p)
}

// ExtractURL downloads and extracts a recording.
func ExtractURL(ctx context.Context, rawURL string, timeout time.Duration) (Stream, error) {
	p, err := source.NewFetcher(nil, timeout, 0).Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return Extract(p)
}
