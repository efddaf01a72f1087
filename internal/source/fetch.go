package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
)

// FetchError is returned for transport failures and non-2xx responses.
type FetchError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrPrivateAddress rejects URLs that resolve to loopback, private,
// link-local or unspecified addresses.
var ErrPrivateAddress = errors.New("destination address is not public")

// Fetcher downloads recordings by URL. No retries are attempted.
type Fetcher struct {
	client       *http.Client
	maxBytes     int64
	blockPrivate bool
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// BlockPrivateAddresses refuses destinations that are not publicly routable.
// The host is checked before the request, and the default client also checks
// every dialed address so redirects and DNS changes cannot reach them.
func BlockPrivateAddresses(on bool) FetchOption {
	return func(f *Fetcher) { f.blockPrivate = on }
}

// NewFetcher creates a Fetcher. A nil client gets an otelhttp-instrumented
// client with the given timeout; maxBytes <= 0 uses DefaultMaxBytes.
func NewFetcher(client *http.Client, timeout time.Duration, maxBytes int64, opts ...FetchOption) *Fetcher {
	f := &Fetcher{client: client, maxBytes: maxBytes}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		var transport http.RoundTripper = http.DefaultTransport
		if f.blockPrivate {
			transport = publicOnlyTransport()
		}
		f.client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		}
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	return f
}

func publicOnlyTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !isPublic(ip) {
				return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
			}
			return nil
		},
	}
	t.DialContext = dialer.DialContext
	t.Proxy = nil
	return t
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast())
}

// checkHost resolves host and fails if any of its addresses is not public.
func checkHost(ctx context.Context, host string) error {
	if ip := net.ParseIP(host); ip != nil {
		if !isPublic(ip) {
			return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if !isPublic(a.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateAddress, host, a.IP)
		}
	}
	return nil
}

// Fetch downloads rawURL. The response content type only becomes a hint;
// decoding is decided later from the bytes themselves.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (recording.Payload, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return recording.Payload{}, &FetchError{URL: rawURL, Err: fmt.Errorf("only absolute http(s) URLs are supported")}
	}
	if f.blockPrivate {
		if err := checkHost(ctx, u.Hostname()); err != nil {
			return recording.Payload{}, &FetchError{URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return recording.Payload{}, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "application/json, application/gzip")
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return recording.Payload{}, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return recording.Payload{}, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	data, err := readCapped(resp.Body, f.maxBytes)
	if err != nil {
		return recording.Payload{}, fmt.Errorf("reading %s: %w", rawURL, err)
	}

	return recording.Payload{
		Data: data,
		Hint: recording.HintFromContentType(resp.Header.Get("Content-Type"), resp.Header.Get("Content-Encoding")),
	}, nil
}
