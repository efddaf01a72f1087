package recording

import (
	"encoding/json"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// WriteOptions controls WriteJSON output.
type WriteOptions struct {
	Gzip   bool
	Indent bool
}

type document struct {
	Events Stream `json:"events"`
}

// WriteJSON writes the stream as a single {"events":[...]} document.
func WriteJSON(w io.Writer, s Stream, opts WriteOptions) error {
	if opts.Gzip {
		zw := gzip.NewWriter(w)
		if err := encode(zw, s, opts.Indent); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return encode(w, s, opts.Indent)
}

// WriteFile writes the stream to path; see WriteJSON.
func WriteFile(path string, s Stream, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, s, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encode(w io.Writer, s Stream, indent bool) error {
	if s == nil {
		s = Stream{}
	}
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(document{Events: s})
}
