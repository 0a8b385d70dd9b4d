package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 5 << 20

// Desktop user agents rotated per request
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:90.0) Gecko/20100101 Firefox/90.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 12_0_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:94.0) Gecko/20100101 Firefox/94.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.45 Safari/537.36 Edg/96.0.1054.29",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1",
}

// RandomUserAgent returns one of the rotated user agents
func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// HTTPTransportConfig configures the direct HTTP transport
type HTTPTransportConfig struct {
	Timeout    time.Duration
	RateLimit  float64 // requests per second per domain, <= 0 disables
	Burst      int
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultHTTPTransportConfig returns the defaults used by the service
func DefaultHTTPTransportConfig() HTTPTransportConfig {
	return HTTPTransportConfig{
		Timeout:    10 * time.Second,
		RateLimit:  0.5,
		Burst:      1,
		MaxRetries: 1,
		RetryDelay: 2 * time.Second,
	}
}

// HTTPTransport fetches pages with net/http and browser-like headers
type HTTPTransport struct {
	client *http.Client
	cfg    HTTPTransportConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &HTTPTransport{
		client:   &http.Client{},
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch issues a GET. 429 and 5xx responses are retried; when retries run
// out the last page is returned so the caller can log its status.
func (t *HTTPTransport) Fetch(ctx context.Context, req Request) (*Page, error) {
	opts := RetryOptions{MaxRetries: t.cfg.MaxRetries, RetryDelay: t.cfg.RetryDelay}

	var page *Page
	err := Retry(ctx, "GET "+req.URL, opts, func(int) error {
		p, err := t.do(ctx, req)
		if err != nil {
			return err
		}
		page = p
		if p.StatusCode == http.StatusTooManyRequests || p.StatusCode >= 500 {
			return Transient(&statusError{code: p.StatusCode})
		}
		return nil
	})
	if err != nil {
		var se *statusError
		if page != nil && errors.As(err, &se) {
			return page, nil
		}
		return nil, err
	}
	return page, nil
}

func (t *HTTPTransport) do(ctx context.Context, req Request) (*Page, error) {
	if err := t.limiter(req.URL).Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.cfg.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	setBrowserHeaders(httpReq, req)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Transient(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, Transient(fmt.Errorf("failed to read body: %w", err))
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       string(body),
	}, nil
}

func (t *HTTPTransport) limiter(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[host]
	if !ok {
		limit := rate.Inf
		if t.cfg.RateLimit > 0 {
			limit = rate.Limit(t.cfg.RateLimit)
		}
		l = rate.NewLimiter(limit, t.cfg.Burst)
		t.limiters[host] = l
	}
	return l
}

func setBrowserHeaders(httpReq *http.Request, req Request) {
	accept := req.Accept
	if accept == "" {
		accept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	}
	referer := req.Referer
	if referer == "" {
		referer = "https://www.google.com/"
	}

	h := httpReq.Header
	h.Set("User-Agent", RandomUserAgent())
	h.Set("Accept", accept)
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Referer", referer)
	h.Set("DNT", "1")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "cross-site")
	h.Set("Cache-Control", "max-age=0")
}
