package recording

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

// DefaultMaxDecodedBytes caps inflated output.
const DefaultMaxDecodedBytes int64 = 512 << 20

var (
	gzipMagic = []byte{0x1f, 0x8b}
	utf8BOM   = []byte{0xef, 0xbb, 0xbf}
)

// IsGzip reports whether data starts with the gzip signature.
func IsGzip(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// Decode turns a payload into UTF-8 text. Gzip input is inflated; anything
// else must already be valid UTF-8. maxBytes <= 0 uses DefaultMaxDecodedBytes.
func Decode(p Payload, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDecodedBytes
	}

	text := p.Data
	if IsGzip(p.Data) {
		inflated, err := inflate(p.Data, maxBytes)
		if err != nil {
			return nil, err
		}
		text = inflated
	}

	text = bytes.TrimPrefix(text, utf8BOM)
	if !utf8.Valid(text) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8 text", ErrDecode)
	}
	return text, nil
}

func inflate(data []byte, maxBytes int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: inflating gzip: %v", ErrDecode, err)
	}
	if int64(len(out)) > maxBytes {
		return nil, fmt.Errorf("%w: inflated payload exceeds %d bytes", ErrDecode, maxBytes)
	}
	return out, nil
}
