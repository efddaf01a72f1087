package recording

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Event is one recorded event, kept as the exact JSON it was read from so
// the player receives it unchanged. Only type and timestamp are interpreted.
type Event json.RawMessage

// MarshalJSON returns the original bytes.
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e) == 0 {
		return []byte("null"), nil
	}
	return e, nil
}

// UnmarshalJSON keeps a copy of the raw element.
func (e *Event) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("recording: UnmarshalJSON on nil Event")
	}
	*e = append((*e)[0:0], data...)
	return nil
}

// Header is the typed view of the two fields the pipeline cares about.
type Header struct {
	Type      json.RawMessage `json:"type"`
	Timestamp float64         `json:"timestamp"`
}

// MaxTimestamp is the largest millisecond offset from the epoch a browser
// Date can hold. Larger timestamps are not placed on the timeline.
const MaxTimestamp = 8.64e15

// InRange reports whether the timestamp fits the Date range.
func (h Header) InRange() bool {
	return h.Timestamp >= -MaxTimestamp && h.Timestamp <= MaxTimestamp
}

// Time converts the millisecond timestamp to a time.Time, clamped to
// ±MaxTimestamp.
func (h Header) Time() time.Time {
	ts := h.Timestamp
	switch {
	case ts > MaxTimestamp:
		ts = MaxTimestamp
	case ts < -MaxTimestamp:
		ts = -MaxTimestamp
	}
	return time.UnixMilli(int64(ts)).UTC()
}

// Header decodes type and timestamp. It fails with ErrInvalidEvent when the
// event is not an object, type is absent or null, or timestamp is not a number.
func (e Event) Header() (Header, error) {
	// Keys match exactly; struct decoding would also accept "Type" or "TIMESTAMP".
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e, &fields); err != nil || fields == nil {
		return Header{}, fmt.Errorf("%w: event is not an object", ErrInvalidEvent)
	}
	typ := fields["type"]
	if isNull(typ) {
		return Header{}, fmt.Errorf("%w: event has no type", ErrInvalidEvent)
	}
	ts := fields["timestamp"]
	if !isNumber(ts) {
		return Header{}, fmt.Errorf("%w: event timestamp is not a number", ErrInvalidEvent)
	}

	h := Header{Type: typ}
	if err := json.Unmarshal(ts, &h.Timestamp); err != nil {
		return Header{}, fmt.Errorf("%w: event timestamp: %v", ErrInvalidEvent, err)
	}
	return h, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func isNumber(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// Stream is the ordered concatenation of every document's events.
type Stream []Event

// Summary describes a stream for CLI output and the session API.
type Summary struct {
	Events   int            `json:"events"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Duration time.Duration  `json:"duration"`
	PerType  map[string]int `json:"per_type"`
	Skipped  int            `json:"skipped"` // no readable header, or timestamp out of range
}

// Summarize walks the stream once. Events without a valid header, or with a
// timestamp outside the Date range, are counted in Skipped and otherwise ignored.
func (s Stream) Summarize() Summary {
	sum := Summary{
		Events:  len(s),
		PerType: make(map[string]int),
	}

	var lo, hi float64
	seen := false
	for _, ev := range s {
		h, err := ev.Header()
		if err != nil || !h.InRange() {
			sum.Skipped++
			continue
		}
		sum.PerType[string(h.Type)]++
		if !seen || h.Timestamp < lo {
			lo = h.Timestamp
		}
		if !seen || h.Timestamp > hi {
			hi = h.Timestamp
		}
		seen = true
	}

	if seen {
		sum.Start = time.UnixMilli(int64(lo)).UTC()
		sum.End = time.UnixMilli(int64(hi)).UTC()
		sum.Duration = sum.End.Sub(sum.Start)
	}
	return sum
}

// Types returns the distinct event types in the summary, sorted.
func (s Summary) Types() []string {
	types := make([]string, 0, len(s.PerType))
	for t := range s.PerType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
