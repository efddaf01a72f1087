// Package source acquires raw recording bytes from uploaded files, local
// paths, and remote URLs.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
)

// DefaultMaxBytes caps how much is read from any single source.
const DefaultMaxBytes int64 = 128 << 20

// ErrTooLarge is returned when a source exceeds its byte cap.
var ErrTooLarge = errors.New("payload too large")

// CheckFile is the gate for dropped or picked files: only names ending in
// ".gz" or files declared as application/gzip are accepted.
func CheckFile(name, mimeType string) error {
	if strings.HasSuffix(name, ".gz") || mimeType == "application/gzip" {
		return nil
	}
	return fmt.Errorf("%w: %q is not a gzip file", recording.ErrUnsupportedFile, filepath.Base(name))
}

// FromUpload gates and reads an uploaded file. Nothing is read when the
// gate rejects the file.
func FromUpload(name, mimeType string, r io.Reader, maxBytes int64) (recording.Payload, error) {
	if err := CheckFile(name, mimeType); err != nil {
		return recording.Payload{}, err
	}
	data, err := readCapped(r, maxBytes)
	if err != nil {
		return recording.Payload{}, err
	}
	return recording.Payload{
		Data: data,
		Hint: recording.HintFromFilename(name, mimeType),
	}, nil
}

// FromFile reads a local path. Unlike uploads, local files are not gated
// on extension.
func FromFile(path string, maxBytes int64) (recording.Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return recording.Payload{}, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	data, err := readCapped(f, maxBytes)
	if err != nil {
		return recording.Payload{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return recording.Payload{
		Data: data,
		Hint: recording.HintFromFilename(path, ""),
	}, nil
}

func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}
