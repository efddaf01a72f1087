package recording

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEvent_Header(t *testing.T) {
	h, err := Event(`{"type":3,"timestamp":1704067200000,"data":{}}`).Header()
	if err != nil {
		t.Fatal(err)
	}
	if string(h.Type) != "3" {
		t.Errorf("Type = %s, want 3", h.Type)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !h.Time().Equal(want) {
		t.Errorf("Time() = %s, want %s", h.Time(), want)
	}
}

func TestEvent_HeaderAcceptsStringType(t *testing.T) {
	if _, err := Event(`{"type":"custom","timestamp":1.5}`).Header(); err != nil {
		t.Errorf("string type should be accepted: %v", err)
	}
}

func TestEvent_HeaderExactKeys(t *testing.T) {
	rejected := []string{
		`{"Type":2,"timestamp":100}`,
		`{"type":2,"Timestamp":100}`,
		`{"TYPE":2,"TIMESTAMP":100}`,
	}
	for _, in := range rejected {
		if _, err := Event(in).Header(); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Header(%s) err = %v, want ErrInvalidEvent", in, err)
		}
	}

	h, err := Event(`{"type":2,"timestamp":100,"Timestamp":"x","TYPE":null}`).Header()
	if err != nil {
		t.Fatalf("differently cased extra keys should be ignored: %v", err)
	}
	if string(h.Type) != "2" || h.Timestamp != 100 {
		t.Errorf("Header = %+v", h)
	}
}

func TestHeader_TimeClamped(t *testing.T) {
	h := Header{Type: json.RawMessage("3"), Timestamp: 1e300}
	if h.InRange() {
		t.Error("1e300 should be out of range")
	}
	want := time.UnixMilli(int64(MaxTimestamp)).UTC()
	if got := h.Time(); !got.Equal(want) {
		t.Errorf("Time() = %s, want %s", got, want)
	}
}

func TestStream_SummarizeSkipsOutOfRangeTimestamps(t *testing.T) {
	s := Stream{
		Event(`{"type":4,"timestamp":1000}`),
		Event(`{"type":3,"timestamp":1e300}`),
		Event(`{"type":3,"timestamp":-1e300}`),
		Event(`{"type":2,"timestamp":3000}`),
	}

	sum := s.Summarize()
	if sum.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", sum.Skipped)
	}
	if sum.PerType["3"] != 0 {
		t.Errorf("PerType[3] = %d, want 0", sum.PerType["3"])
	}
	if sum.Duration != 2*time.Second {
		t.Errorf("Duration = %s, want 2s", sum.Duration)
	}
	if !sum.Start.Equal(time.UnixMilli(1000).UTC()) {
		t.Errorf("Start = %s", sum.Start)
	}
}

func TestStream_Summarize(t *testing.T) {
	s := Stream{
		Event(`{"type":4,"timestamp":1000}`),
		Event(`{"type":2,"timestamp":1500}`),
		Event(`{"type":3,"timestamp":4000}`),
		Event(`{"type":3,"timestamp":3000}`),
		Event(`{"broken":true}`),
	}

	sum := s.Summarize()
	if sum.Events != 5 {
		t.Errorf("Events = %d, want 5", sum.Events)
	}
	if sum.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", sum.Skipped)
	}
	if sum.Duration != 3*time.Second {
		t.Errorf("Duration = %s, want 3s", sum.Duration)
	}
	if sum.PerType["3"] != 2 {
		t.Errorf("PerType[3] = %d, want 2", sum.PerType["3"])
	}
	types := sum.Types()
	if len(types) != 3 || types[0] != "2" || types[2] != "4" {
		t.Errorf("Types() = %v", types)
	}
}

func TestStream_SummarizeEmpty(t *testing.T) {
	sum := Stream(nil).Summarize()
	if sum.Events != 0 || !sum.Start.IsZero() || sum.Duration != 0 {
		t.Errorf("empty summary = %+v", sum)
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	s := Stream{
		Event(`{"type":4,"timestamp":1,"data":{"width":1024}}`),
		Event(`{"type":2,"timestamp":2}`),
	}

	for _, opts := range []WriteOptions{{}, {Indent: true}, {Gzip: true}, {Gzip: true, Indent: true}} {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, s, opts); err != nil {
			t.Fatalf("%+v: %v", opts, err)
		}
		if opts.Gzip != IsGzip(buf.Bytes()) {
			t.Errorf("%+v: gzip output = %v", opts, IsGzip(buf.Bytes()))
		}

		back, err := Extract(Payload{Data: buf.Bytes()})
		if err != nil {
			t.Fatalf("%+v: re-extract: %v", opts, err)
		}
		if streamJSON(t, back) != streamJSON(t, s) {
			t.Errorf("%+v: got %s", opts, streamJSON(t, back))
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json.gz")
	s := Stream{Event(`{"type":2,"timestamp":2}`)}

	if err := WriteFile(path, s, WriteOptions{Gzip: true}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !IsGzip(data) {
		t.Error("file is not gzip")
	}
}

func TestHintFromContentType(t *testing.T) {
	cases := []struct {
		ct, enc string
		want    bool
	}{
		{"application/gzip", "", true},
		{"application/x-gzip; charset=binary", "", true},
		{"application/json", "gzip", true},
		{"application/json; charset=utf-8", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		if got := HintFromContentType(c.ct, c.enc).LikelyGzip; got != c.want {
			t.Errorf("HintFromContentType(%q, %q) = %v, want %v", c.ct, c.enc, got, c.want)
		}
	}
	if ct := HintFromContentType("application/json; charset=utf-8", "").ContentType; ct != "application/json" {
		t.Errorf("ContentType = %q", ct)
	}
}

func TestHintFromFilename(t *testing.T) {
	if !HintFromFilename("session.json.gz", "").LikelyGzip {
		t.Error(".gz file should hint gzip")
	}
	if HintFromFilename("session.json", "").LikelyGzip {
		t.Error(".json file should not hint gzip")
	}
	if !HintFromFilename("blob", "application/gzip").LikelyGzip {
		t.Error("application/gzip should hint gzip")
	}
}
