package logging

import "log/slog"

// Field names shared by every component.
const (
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldOrigin    = "origin"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldEvents    = "events"
)

func SessionID(id string) slog.Attr { return slog.String(FieldSessionID, id) }

func Origin(origin string) slog.Attr { return slog.String(FieldOrigin, origin) }

func Method(method string) slog.Attr { return slog.String(FieldMethod, method) }

func Path(path string) slog.Attr { return slog.String(FieldPath, path) }

func Status(code int) slog.Attr { return slog.Int(FieldStatus, code) }

// Duration is logged in milliseconds.
func Duration(ms int64) slog.Attr { return slog.Int64(FieldDuration, ms) }

func Events(n int) slog.Attr { return slog.Int(FieldEvents, n) }

// Err returns an error attribute. A nil error logs as an empty string.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
