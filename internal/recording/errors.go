package recording

import "errors"

// Errors returned while turning a payload into an event stream. Callers match
// them with errors.Is; the returned errors wrap these with detail.
var (
	// ErrUnsupportedFile is returned when a dropped or selected file is not gzip.
	ErrUnsupportedFile = errors.New("unsupported file")
	// ErrDecode is returned when the bytes are neither UTF-8 text nor a valid gzip stream.
	ErrDecode = errors.New("cannot decode payload")
	// ErrParse is returned when a JSON document in the payload is malformed.
	ErrParse = errors.New("invalid JSON")
	// ErrMissingEvents is returned when a document has no events array.
	ErrMissingEvents = errors.New("the file does not contain an array of events")
	// ErrEmptyStream is returned when no events were recovered.
	ErrEmptyStream = errors.New("the file contains an empty array of events")
	// ErrInvalidEvent is returned when the first event lacks a type or a numeric timestamp.
	ErrInvalidEvent = errors.New("the file does not contain valid rrweb events")
)
