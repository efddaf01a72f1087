package recording

import (
	"mime"
	"path/filepath"
	"strings"
)

// Payload is the raw bytes of one ingestion attempt plus whatever the source
// said about them.
type Payload struct {
	Data []byte
	Hint Hint
}

// Hint is advisory. The gzip magic bytes always decide how Data is decoded;
// the hint is only logged and reported.
type Hint struct {
	ContentType string `json:"content_type,omitempty"`
	LikelyGzip  bool   `json:"likely_gzip"`
}

// HintFromContentType builds a hint from HTTP response headers.
func HintFromContentType(contentType, contentEncoding string) Hint {
	h := Hint{ContentType: contentType}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		h.ContentType = mt
	}
	switch strings.ToLower(h.ContentType) {
	case "application/gzip", "application/x-gzip":
		h.LikelyGzip = true
	}
	if strings.EqualFold(strings.TrimSpace(contentEncoding), "gzip") {
		h.LikelyGzip = true
	}
	return h
}

// HintFromFilename builds a hint from a file name and an optional declared MIME type.
func HintFromFilename(name, mimeType string) Hint {
	h := Hint{ContentType: mimeType}
	if h.ContentType == "" {
		h.ContentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if strings.HasSuffix(name, ".gz") || mimeType == "application/gzip" {
		h.LikelyGzip = true
	}
	return h
}
