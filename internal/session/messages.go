package session

import (
	"errors"

	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/source"
)

// UserMessage renders err as the text shown on the page. URL loads use the
// "JSON file" wording, everything else the "file" wording.
func UserMessage(err error, origin string) string {
	if err == nil {
		return ""
	}

	subject := "The file"
	if origin == OriginURL {
		subject = "The JSON file"
	}

	var fe *source.FetchError
	var detail string
	switch {
	case errors.Is(err, recording.ErrUnsupportedFile):
		return "Please drop a gzip file."
	case errors.Is(err, ErrAlreadyBound):
		return "Player already exists. Please reload the page."
	case errors.Is(err, ErrNotFound):
		return "This session has expired. Please reload the page."
	case errors.Is(err, recording.ErrMissingEvents):
		detail = subject + " does not contain an array of events."
	case errors.Is(err, recording.ErrEmptyStream):
		detail = subject + " contains an empty array of events."
	case errors.Is(err, recording.ErrInvalidEvent):
		detail = subject + " does not contain valid rrweb events."
	case errors.Is(err, source.ErrTooLarge):
		detail = subject + " is too large."
	case errors.As(err, &fe):
		detail = fe.Error()
	default:
		detail = err.Error()
	}

	if origin == OriginURL {
		return "Failed to load or parse the JSON file: " + detail
	}
	return "Failed to process the file: " + detail
}
