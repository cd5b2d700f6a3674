package utils

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/semaphore"
)

const (
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	mobileUserAgent  = "Mozilla/5.0 (Linux; Android 10; SM-G975F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36"
	secChUA          = `"Google Chrome";v="125", "Chromium";v="125", "Not.A/Brand";v="24"`

	// maxBodySize caps how much of a response body is read into memory
	maxBodySize = 10 * 1024 * 1024
)

// ClientConfig represents HTTP session configuration. MaxConns bounds the
// requests in flight across all hosts, MaxConnsPerHost those to one host.
type ClientConfig struct {
	Timeout         time.Duration
	MaxIdleConns    int
	MaxConns        int
	MaxConnsPerHost int
	IdleConnTimeout time.Duration
	ProxyURL        string
	TLSInsecure     bool
	// Origin is sent alongside Referer on API requests
	Origin string
}

// DefaultClientConfig mirrors the limits the share pages are known to tolerate
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         30 * time.Second,
		MaxIdleConns:    10,
		MaxConns:        10,
		MaxConnsPerHost: 5,
		IdleConnTimeout: 90 * time.Second,
		TLSInsecure:     true,
		Origin:          "https://www.terabox.com",
	}
}

// Session is the process-wide HTTP client shared by every strategy.
// It is created on first use and re-created on the first use after Close.
type Session struct {
	config ClientConfig
	logger zerolog.Logger

	mu        sync.Mutex
	client    *http.Client
	transport *http.Transport
}

// NewSession returns a session that will be built lazily from config
func NewSession(config ClientConfig, logger zerolog.Logger) *Session {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Session{
		config: config,
		logger: logger.With().Str("component", "http_session").Logger(),
	}
}

// Client returns the live client, building it if needed
func (s *Session) Client() (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	transport, err := s.newTransport()
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}

	var roundTripper http.RoundTripper = transport
	if s.config.MaxConns > 0 {
		roundTripper = newLimitedTransport(transport, s.config.MaxConns)
	}

	s.transport = transport
	s.client = &http.Client{
		Transport: roundTripper,
		Timeout:   s.config.Timeout,
		Jar:       jar,
	}

	s.logger.Debug().
		Dur("timeout", s.config.Timeout).
		Int("max_conns", s.config.MaxConns).
		Int("max_conns_per_host", s.config.MaxConnsPerHost).
		Msg("HTTP session created")

	return s.client, nil
}

// Close releases pooled connections. The next request builds a fresh session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	s.client = nil
	s.transport = nil

	s.logger.Debug().Msg("HTTP session closed")
	return nil
}

func (s *Session) newTransport() (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        s.config.MaxIdleConns,
		MaxIdleConnsPerHost: s.config.MaxConnsPerHost,
		MaxConnsPerHost:     s.config.MaxConnsPerHost,
		IdleConnTimeout:     s.config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	if s.config.ProxyURL != "" {
		proxyURL, err := url.Parse(s.config.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("error parsing proxy URL: %w", err)
		}
		switch proxyURL.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(proxyURL)
		case "socks5", "socks5h":
			dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("error creating socks dialer: %w", err)
			}
			contextDialer, ok := dialer.(proxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("socks dialer does not support contexts")
			}
			transport.Proxy = nil
			transport.DialContext = contextDialer.DialContext
		default:
			return nil, fmt.Errorf("unsupported proxy scheme: %s", proxyURL.Scheme)
		}
	}

	// The share hosts serve certificates that standard validation rejects.
	if s.config.TLSInsecure {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return transport, nil
}

// limitedTransport holds one semaphore slot per request from the moment it is
// sent until its response body is closed.
type limitedTransport struct {
	next http.RoundTripper
	sem  *semaphore.Weighted
}

func newLimitedTransport(next http.RoundTripper, maxConns int) *limitedTransport {
	return &limitedTransport{
		next: next,
		sem:  semaphore.NewWeighted(int64(maxConns)),
	}
}

// RoundTrip implements http.RoundTripper
func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.sem.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}

	resp.Body = &releasingBody{ReadCloser: resp.Body, release: func() { t.sem.Release(1) }}
	return resp, nil
}

// releasingBody frees its slot exactly once, on the first Close
type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

// APIHeaders returns browser-like XHR headers. A non-empty referer adds a matching Origin.
func (s *Session) APIHeaders(referer string) map[string]string {
	headers := map[string]string{
		"User-Agent":         desktopUserAgent,
		"Accept":             "application/json, text/plain, */*",
		"Accept-Language":    "en-US,en;q=0.9",
		"Connection":         "keep-alive",
		"sec-ch-ua":          secChUA,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"Windows"`,
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "same-origin",
		"X-Requested-With":   "XMLHttpRequest",
	}

	if referer != "" {
		headers["Referer"] = referer
		headers["Origin"] = s.config.Origin
	}

	return headers
}

// PageHeaders returns headers for top-level document navigations
func (s *Session) PageHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                desktopUserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"sec-ch-ua":                 secChUA,
		"sec-ch-ua-mobile":          "?0",
		"sec-ch-ua-platform":        `"Windows"`,
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}
}

// MobileHeaders returns the headers of the mobile web client
func (s *Session) MobileHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      mobileUserAgent,
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// Get performs a GET request with query params and headers
func (s *Session) Get(ctx context.Context, rawURL string, params url.Values, headers map[string]string) (*http.Response, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BuildURL(rawURL, params), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	s.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Msg("Making HTTP request")

	return client.Do(req)
}

// GetBody performs a GET and returns the body of a 200 response
func (s *Session) GetBody(ctx context.Context, rawURL string, params url.Values, headers map[string]string) ([]byte, *http.Response, error) {
	resp, err := s.Get(ctx, rawURL, params, headers)
	if err != nil {
		return nil, nil, fmt.Errorf("error fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp, fmt.Errorf("error reading response body: %w", err)
	}

	return body, resp, nil
}

// GetJSON performs a GET and decodes a 200 JSON response into v
func (s *Session) GetJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string, v interface{}) error {
	body, _, err := s.GetBody(ctx, rawURL, params, headers)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error parsing API response: %w", err)
	}

	return nil
}

// GetText fetches a page and returns its body with the cookies it set
func (s *Session) GetText(ctx context.Context, rawURL string, headers map[string]string) (string, []*http.Cookie, error) {
	body, resp, err := s.GetBody(ctx, rawURL, nil, headers)
	if err != nil {
		return "", nil, err
	}

	return string(body), resp.Cookies(), nil
}

// BuildURL appends params to baseURL, keeping any query it already has
func BuildURL(baseURL string, params url.Values) string {
	if len(params) == 0 {
		return baseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}

	q := u.Query()
	for key, values := range params {
		for _, value := range values {
			q.Set(key, value)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// CookieHeader renders cookies as a Cookie request header value
func CookieHeader(cookies []*http.Cookie) string {
	var header string
	for i, cookie := range cookies {
		if i > 0 {
			header += "; "
		}
		header += cookie.Name + "=" + cookie.Value
	}
	return header
}
