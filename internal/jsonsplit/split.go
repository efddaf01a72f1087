// Package jsonsplit splits text made of JSON documents written back-to-back
// with no separator, the format some event dumps use when several recordings
// are appended to one file.
package jsonsplit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Mode selects the splitting strategy.
type Mode string

const (
	// ModeHeuristic parses the accumulated prefix at every "}{" and accepts
	// the first boundary where it is valid JSON on its own.
	ModeHeuristic Mode = "heuristic"
	// ModeStrict walks the input with a streaming decoder that tracks
	// nesting and string state, so boundaries are found in one pass.
	ModeStrict Mode = "strict"
)

// ParseMode converts a config string into a Mode. Empty means heuristic.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHeuristic:
		return ModeHeuristic, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown split mode %q, must be one of: heuristic, strict", s)
	}
}

// SyntaxError reports a chunk that had to parse but did not.
type SyntaxError struct {
	Offset int // byte offset where the failing chunk starts
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid JSON document at offset %d: %v", e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// SplitMode dispatches to Split or SplitStrict.
func SplitMode(mode Mode, text []byte) ([]json.RawMessage, error) {
	if mode == ModeStrict {
		return SplitStrict(text)
	}
	return Split(text)
}

// Split returns the documents in text in left-to-right order.
//
// Every position where '}' is immediately followed by '{' is a candidate
// boundary. The prefix since the last accepted boundary is parsed there; if it
// is valid JSON the boundary is accepted, otherwise scanning continues and the
// same prefix is retried at the next candidate. Whatever is left after the
// scan is parsed as the final document and must be valid.
//
// A "}{" inside a string or between nested values only costs a failed parse,
// but inputs full of such false candidates re-parse ever longer prefixes.
// SplitStrict avoids that.
func Split(text []byte) ([]json.RawMessage, error) {
	var docs []json.RawMessage
	start := 0

	for i := 0; i < len(text)-1; i++ {
		if text[i] != '}' || text[i+1] != '{' {
			continue
		}
		chunk := text[start : i+1]
		if !json.Valid(chunk) {
			continue
		}
		docs = append(docs, json.RawMessage(bytes.Clone(chunk)))
		start = i + 1
	}

	if start < len(text) {
		rest := text[start:]
		if err := validate(rest); err != nil {
			return nil, &SyntaxError{Offset: start, Err: err}
		}
		docs = append(docs, json.RawMessage(bytes.Clone(rest)))
	}

	return docs, nil
}

// SplitStrict returns the top-level JSON values in text using a streaming
// decoder. Whitespace between values is allowed. On separator-free
// concatenations of well-formed documents it agrees with Split.
func SplitStrict(text []byte) ([]json.RawMessage, error) {
	var docs []json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(text))

	for {
		offset := int(dec.InputOffset())
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = errors.New("unexpected end of JSON input")
			}
			return nil, &SyntaxError{Offset: offset, Err: err}
		}
		docs = append(docs, raw)
	}
}

// validate reports why b is not valid JSON.
func validate(b []byte) error {
	if json.Valid(b) {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}
