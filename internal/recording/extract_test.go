package recording

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/SmitUplenchwar2687/Rewind/internal/jsonsplit"
)

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func streamJSON(t *testing.T, s Stream) string {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestExtract_ConcatenatedDocuments(t *testing.T) {
	input := `{"events":[{"type":2,"timestamp":100}]}{"events":[{"type":3,"timestamp":200}]}`

	stream, err := Extract(Payload{Data: []byte(input)})
	if err != nil {
		t.Fatal(err)
	}

	want := `[{"type":2,"timestamp":100},{"type":3,"timestamp":200}]`
	if got := streamJSON(t, stream); got != want {
		t.Errorf("stream = %s, want %s", got, want)
	}
}

func TestExtract_EmptyEvents(t *testing.T) {
	_, err := Extract(Payload{Data: []byte(`{"events":[]}`)})
	if !errors.Is(err, ErrEmptyStream) {
		t.Errorf("err = %v, want ErrEmptyStream", err)
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	for _, data := range [][]byte{nil, {}} {
		_, err := Extract(Payload{Data: data})
		if !errors.Is(err, ErrEmptyStream) {
			t.Errorf("err = %v, want ErrEmptyStream", err)
		}
	}
}

func TestExtract_MissingEventsField(t *testing.T) {
	_, err := Extract(Payload{Data: []byte(`{"notEvents":[1,2,3]}`)})
	if !errors.Is(err, ErrMissingEvents) {
		t.Errorf("err = %v, want ErrMissingEvents", err)
	}
}

func TestExtract_EventsNotArray(t *testing.T) {
	for _, input := range []string{`{"events":{}}`, `{"events":null}`, `{"events":"x"}`, `[1,2]`} {
		_, err := Extract(Payload{Data: []byte(input)})
		if !errors.Is(err, ErrMissingEvents) {
			t.Errorf("%s: err = %v, want ErrMissingEvents", input, err)
		}
	}
}

func TestExtract_MissingDocumentFailsWholeExtraction(t *testing.T) {
	input := `{"events":[{"type":2,"timestamp":1}]}{"other":true}`
	if _, err := Extract(Payload{Data: []byte(input)}); !errors.Is(err, ErrMissingEvents) {
		t.Errorf("err = %v, want ErrMissingEvents", err)
	}
}

func TestExtract_AllowMissingEventsSkipsDocument(t *testing.T) {
	input := `{"events":[{"type":2,"timestamp":1}]}{"other":true}{"events":[{"type":3,"timestamp":2}]}`
	ex := NewExtractor(WithAllowMissingEvents(true))

	stream, err := ex.Extract(Payload{Data: []byte(input)})
	if err != nil {
		t.Fatal(err)
	}
	if len(stream) != 2 {
		t.Errorf("len = %d, want 2", len(stream))
	}
}

func TestExtract_InvalidFirstEvent(t *testing.T) {
	cases := []string{
		`{"events":[{"timestamp":"not-a-number"}]}`,
		`{"events":[{"type":2,"timestamp":"100"}]}`,
		`{"events":[{"type":2}]}`,
		`{"events":[{"timestamp":100}]}`,
		`{"events":[{"type":null,"timestamp":100}]}`,
		`{"events":[1]}`,
		`{"events":[{"Type":2,"Timestamp":100}]}`,
		`{"events":[{"TYPE":2,"timestamp":100}]}`,
	}
	for _, input := range cases {
		_, err := Extract(Payload{Data: []byte(input)})
		if !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("%s: err = %v, want ErrInvalidEvent", input, err)
		}
	}
}

func TestExtract_FirstEventKeysAreCaseSensitive(t *testing.T) {
	input := `{"events":[{"type":2,"timestamp":100,"Timestamp":"late"}]}`
	stream, err := Extract(Payload{Data: []byte(input)})
	if err != nil {
		t.Fatal(err)
	}
	if len(stream) != 1 {
		t.Errorf("len = %d, want 1", len(stream))
	}
}

func TestExtract_OnlyFirstEventIsValidated(t *testing.T) {
	input := `{"events":[{"type":4,"timestamp":1},{"oddity":true}]}`
	stream, err := Extract(Payload{Data: []byte(input)})
	if err != nil {
		t.Fatal(err)
	}
	if len(stream) != 2 {
		t.Errorf("len = %d, want 2", len(stream))
	}
}

func TestExtract_ParseError(t *testing.T) {
	_, err := Extract(Payload{Data: []byte(`{"events":[{"type":2,"timestamp":1}]}{"events":[`)})
	if !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestExtract_GzipMatchesPlaintext(t *testing.T) {
	plain := `{"events":[{"type":4,"timestamp":10,"data":{"href":"https://example.com"}}]}{"events":[{"type":2,"timestamp":11}]}`

	fromPlain, err := Extract(Payload{Data: []byte(plain)})
	if err != nil {
		t.Fatal(err)
	}
	fromGzip, err := Extract(Payload{Data: gzipBytes(t, plain)})
	if err != nil {
		t.Fatal(err)
	}

	if streamJSON(t, fromPlain) != streamJSON(t, fromGzip) {
		t.Errorf("gzip stream %s differs from plain %s", streamJSON(t, fromGzip), streamJSON(t, fromPlain))
	}
}

func TestExtract_MagicBytesOverrideHint(t *testing.T) {
	plain := `{"events":[{"type":2,"timestamp":1}]}`

	// Claimed gzip, actually plain text.
	if _, err := Extract(Payload{Data: []byte(plain), Hint: Hint{LikelyGzip: true}}); err != nil {
		t.Errorf("plain with gzip hint: %v", err)
	}
	// Claimed JSON, actually gzip.
	if _, err := Extract(Payload{Data: gzipBytes(t, plain), Hint: Hint{ContentType: "application/json"}}); err != nil {
		t.Errorf("gzip with json hint: %v", err)
	}
}

func TestExtract_RoundTripConcatenation(t *testing.T) {
	docs := []string{
		`{"events":[{"type":4,"timestamp":1},{"type":2,"timestamp":2}]}`,
		`{"events":[{"type":3,"timestamp":3}]}`,
		`{"events":[{"type":3,"timestamp":4},{"type":3,"timestamp":5},{"type":3,"timestamp":6}]}`,
	}

	var expected Stream
	for _, d := range docs {
		s, err := Extract(Payload{Data: []byte(d)})
		if err != nil {
			t.Fatal(err)
		}
		expected = append(expected, s...)
	}

	all, err := Extract(Payload{Data: []byte(strings.Join(docs, ""))})
	if err != nil {
		t.Fatal(err)
	}
	if streamJSON(t, all) != streamJSON(t, expected) {
		t.Errorf("pipeline = %s, want %s", streamJSON(t, all), streamJSON(t, expected))
	}
}

func TestExtract_StrictMode(t *testing.T) {
	input := "{\"events\":[{\"type\":2,\"timestamp\":1}]}\n{\"events\":[{\"type\":3,\"timestamp\":2}]}\n"

	if _, err := Extract(Payload{Data: []byte(input)}); !errors.Is(err, ErrParse) {
		t.Errorf("heuristic: err = %v, want ErrParse", err)
	}

	ex := NewExtractor(WithSplitMode(jsonsplit.ModeStrict))
	stream, err := ex.Extract(Payload{Data: []byte(input)})
	if err != nil {
		t.Fatal(err)
	}
	if len(stream) != 2 {
		t.Errorf("len = %d, want 2", len(stream))
	}
}

func TestDecode_StripsBOM(t *testing.T) {
	data := append([]byte{0xef, 0xbb, 0xbf}, []byte(`{"events":[{"type":2,"timestamp":1}]}`)...)
	if _, err := Extract(Payload{Data: data}); err != nil {
		t.Errorf("BOM-prefixed payload: %v", err)
	}
}

func TestDecode_InvalidUTF8(t *testing.T) {
	_, err := Decode(Payload{Data: []byte{'{', 0xff, 0xfe, '}'}}, 0)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestDecode_CorruptGzip(t *testing.T) {
	data := gzipBytes(t, `{"events":[]}`)
	data = data[:len(data)-6]
	_, err := Decode(Payload{Data: data}, 0)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestDecode_GzipSizeCap(t *testing.T) {
	data := gzipBytes(t, strings.Repeat("a", 4096))
	if _, err := Decode(Payload{Data: data}, 1024); !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode for oversized output", err)
	}
	if _, err := Decode(Payload{Data: data}, 4096); err != nil {
		t.Errorf("exact-size output: %v", err)
	}
}

func TestIsGzip(t *testing.T) {
	if !IsGzip([]byte{0x1f, 0x8b, 0x08}) {
		t.Error("gzip signature not detected")
	}
	if IsGzip([]byte{0x1f}) || IsGzip(nil) || IsGzip([]byte(`{}`)) {
		t.Error("false positive gzip detection")
	}
}
