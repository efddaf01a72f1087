package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
)

const sample = `{"events":[{"type":2,"timestamp":100}]}`

type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func TestCheckFile(t *testing.T) {
	accepted := []struct{ name, mime string }{
		{"session.gz", ""},
		{"session.json.gz", "application/octet-stream"},
		{"blob", "application/gzip"},
	}
	for _, c := range accepted {
		if err := CheckFile(c.name, c.mime); err != nil {
			t.Errorf("CheckFile(%q, %q) = %v, want nil", c.name, c.mime, err)
		}
	}

	rejected := []struct{ name, mime string }{
		{"recording.txt", "text/plain"},
		{"recording.json", "application/json"},
		{"recording.GZ", ""},
	}
	for _, c := range rejected {
		if err := CheckFile(c.name, c.mime); !errors.Is(err, recording.ErrUnsupportedFile) {
			t.Errorf("CheckFile(%q, %q) = %v, want ErrUnsupportedFile", c.name, c.mime, err)
		}
	}
}

func TestFromUpload_RejectsWithoutReading(t *testing.T) {
	cr := &countingReader{r: strings.NewReader(sample)}

	_, err := FromUpload("recording.txt", "text/plain", cr, 0)
	if !errors.Is(err, recording.ErrUnsupportedFile) {
		t.Fatalf("err = %v, want ErrUnsupportedFile", err)
	}
	if cr.read != 0 {
		t.Errorf("read %d bytes from a rejected file", cr.read)
	}
}

func TestFromUpload_Accepts(t *testing.T) {
	p, err := FromUpload("session.gz", "", strings.NewReader(sample), 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(p.Data) != sample {
		t.Errorf("Data = %q", p.Data)
	}
	if !p.Hint.LikelyGzip {
		t.Error("hint should mark .gz upload as likely gzip")
	}
}

func TestFromUpload_TooLarge(t *testing.T) {
	_, err := FromUpload("session.gz", "", strings.NewReader(sample), 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := FromFile(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p.Data, []byte(sample)) {
		t.Errorf("Data = %q", p.Data)
	}
	if p.Hint.LikelyGzip {
		t.Error(".json file should not be hinted as gzip")
	}

	if _, err := FromFile(filepath.Join(t.TempDir(), "missing.gz"), 0); err == nil {
		t.Error("missing file should fail")
	}
}

func TestFetch_SendsHeadersAndReturnsBody(t *testing.T) {
	var gotAccept, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/gzip")
		io.WriteString(w, sample)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 5*time.Second, 0)
	p, err := f.Fetch(context.Background(), srv.URL+"/session.gz")
	if err != nil {
		t.Fatal(err)
	}

	if gotAccept != "application/json, application/gzip" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if string(p.Data) != sample {
		t.Errorf("Data = %q", p.Data)
	}
	if !p.Hint.LikelyGzip {
		t.Error("application/gzip response should hint gzip")
	}

	// The declared type is wrong but extraction still succeeds.
	if _, err := recording.Extract(p); err != nil {
		t.Errorf("Extract() = %v", err)
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client(), time.Second, 0).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", fe.StatusCode)
	}
}

func TestFetch_RejectsNonHTTP(t *testing.T) {
	f := NewFetcher(nil, time.Second, 0)
	for _, u := range []string{"file:///etc/passwd", "ftp://example.com/x.gz", "not a url", "/relative.gz"} {
		var fe *FetchError
		if _, err := f.Fetch(context.Background(), u); !errors.As(err, &fe) {
			t.Errorf("Fetch(%q) = %v, want *FetchError", u, err)
		}
	}
}

func TestFetch_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 2048))
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client(), time.Second, 1024).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestFetch_BlockPrivateAddresses(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		io.WriteString(w, sample)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), time.Second, 0, BlockPrivateAddresses(true))
	for _, u := range []string{srv.URL, "http://localhost:1/x.gz", "http://[::1]:1/x.gz", "http://169.254.169.254/latest/meta-data"} {
		_, err := f.Fetch(context.Background(), u)
		var fe *FetchError
		if !errors.As(err, &fe) || !errors.Is(err, ErrPrivateAddress) {
			t.Errorf("Fetch(%q) = %v, want *FetchError wrapping ErrPrivateAddress", u, err)
		}
	}
	if called {
		t.Error("blocked URL reached the server")
	}

	if _, err := NewFetcher(srv.Client(), time.Second, 0, BlockPrivateAddresses(false)).Fetch(context.Background(), srv.URL); err != nil {
		t.Errorf("unblocked fetch: %v", err)
	}
}

func TestPublicOnlyTransport_RefusesLoopbackDial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dial guard let the request through")
	}))
	defer srv.Close()

	client := &http.Client{Transport: publicOnlyTransport(), Timeout: time.Second}
	resp, err := client.Get(srv.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected dial to be refused")
	}
	if !errors.Is(err, ErrPrivateAddress) {
		t.Errorf("err = %v, want ErrPrivateAddress", err)
	}
}

func TestIsPublic(t *testing.T) {
	cases := map[string]bool{
		"93.184.216.34": true,
		"2606:4700::1":  true,
		"127.0.0.1":     false,
		"10.0.0.8":      false,
		"172.16.4.1":    false,
		"192.168.1.1":   false,
		"169.254.1.1":   false,
		"0.0.0.0":       false,
		"::1":           false,
		"fd00::1":       false,
		"fe80::1":       false,
	}
	for in, want := range cases {
		if got := isPublic(net.ParseIP(in)); got != want {
			t.Errorf("isPublic(%s) = %v, want %v", in, got, want)
		}
	}
}
