package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"
)

// Default fetcher settings.
const (
	// DefaultTimeout bounds a single fetch, connection setup included.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies the crawler in server logs.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// FetchResult is the outcome of one fetch attempt.
// Exactly one of two shapes is returned: a response with a 2xx status and a
// body, or a failure with Err set.
type FetchResult struct {
	// URL is the address that was requested.
	URL string

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// ContentType is the response Content-Type header.
	ContentType string

	// Body is the response body decoded to UTF-8 text.
	Body string

	// Elapsed is the time the attempt took.
	Elapsed time.Duration

	// Err is set for transport failures and non-2xx statuses.
	Err error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// StatusError is returned for responses whose status is not 2xx.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "unexpected HTTP status: " + e.Status
}

// Fetcher performs the HTTP GET for one URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) FetchResult
}

// HTTPFetcher is the net/http implementation of Fetcher.
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	headers     map[string]string
	hostHeaders func(host string) map[string]string
	maxBodySize int64
	proxyAddr   string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithHeaders adds extra request headers, e.g. Authorization or Cookie.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithHostHeaders adds headers chosen per request from the request's
// host[:port]. They are applied after WithHeaders and win on conflict.
func WithHostHeaders(lookup func(host string) map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.hostHeaders = lookup
	}
}

// WithMaxBodySize caps the number of body bytes read per response.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithSOCKS5Proxy routes all requests through the SOCKS5 proxy at addr
// ("host:port").
func WithSOCKS5Proxy(addr string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.proxyAddr = addr
	}
}

// WithHTTPClient replaces the HTTP client. The per-request timeout still
// applies through the request context.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewHTTPFetcher creates a fetcher with the given options.
func NewHTTPFetcher(opts ...FetcherOption) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		headers:     make(map[string]string),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.maxBodySize <= 0 {
		f.maxBodySize = DefaultMaxBodySize
	}

	if f.client == nil {
		transport, err := f.newTransport()
		if err != nil {
			return nil, err
		}
		f.client = &http.Client{Transport: transport}
	}

	return f, nil
}

// newTransport builds the transport, dialing through the proxy if one is set.
func (f *HTTPFetcher) newTransport() (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   f.timeout,
		ExpectContinueTimeout: time.Second,
	}

	if f.proxyAddr == "" {
		return transport, nil
	}
	if !isValidProxyAddress(f.proxyAddr) {
		return nil, ErrInvalidProxyAddress
	}

	dialer, err := proxy.SOCKS5("tcp", f.proxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("SOCKS5 dialer does not support contexts")
	}
	transport.Proxy = nil
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return contextDialer.DialContext(ctx, network, addr)
	}
	return transport, nil
}

// Fetch performs a GET for pageURL. It never panics and never returns a
// partially successful result: any error reading the body is a failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) FetchResult {
	start := time.Now()
	result := FetchResult{URL: pageURL}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		result.Err = fmt.Errorf("failed to build request: %w", err)
		result.Elapsed = time.Since(start)
		return result
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.hostHeaders != nil {
		for k, v := range f.hostHeaders(req.URL.Host) {
			req.Header.Set(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		result.Err = err
		result.Elapsed = time.Since(start)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		result.Err = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		result.Elapsed = time.Since(start)
		return result
	}

	body, err := readBody(io.LimitReader(resp.Body, f.maxBodySize), result.ContentType)
	if err != nil {
		result.Err = fmt.Errorf("failed to read body: %w", err)
		result.Elapsed = time.Since(start)
		return result
	}

	result.Body = body
	result.Elapsed = time.Since(start)
	return result
}

// readBody decodes r to UTF-8 using the charset from contentType or the
// document's meta tags. Unknown charsets fall back to the raw bytes.
func readBody(r io.Reader, contentType string) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	enc, _, _ := charset.DetermineEncoding(raw, contentType)
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw), nil //nolint:nilerr // undecodable bodies are still parsed as-is
	}
	return string(decoded), nil
}
