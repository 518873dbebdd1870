// Package fetcher retrieves single pages over HTTP, following redirects and
// reporting where they ended up.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// ErrTooManyRedirects is returned when a redirect chain exceeds the hop limit.
var ErrTooManyRedirects = errors.New("too many redirects")

// RedirectPolicy stops a client after maxHops redirects.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}

// Page is a fetched response.
type Page struct {
	StatusCode int
	Header     http.Header
	// FinalURL is the URL after following redirects.
	FinalURL string
	Body     []byte
}

// MediaType returns the lowercased media type of the Content-Type header.
func (p *Page) MediaType() string {
	ct := p.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	return mt
}

// IsHTML reports whether the page declares an HTML media type.
func (p *Page) IsHTML() bool {
	switch p.MediaType() {
	case "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

// OK reports a 2xx status.
func (p *Page) OK() bool {
	return p.StatusCode >= http.StatusOK && p.StatusCode < http.StatusMultipleChoices
}

// HTTPFetcher fetches pages with a per-call timeout and an optional rate limit.
type HTTPFetcher struct {
	client  *http.Client
	cfg     Config
	limiter *rate.Limiter
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient replaces the underlying client. Its redirect policy is
// overridden to enforce the configured hop limit.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// New returns an HTTPFetcher.
func New(cfg Config, opts ...Option) *HTTPFetcher {
	cfg = cfg.WithDefaults()
	f := &HTTPFetcher{
		client: &http.Client{},
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client.CheckRedirect = RedirectPolicy(cfg.MaxRedirects)

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	f.limiter = rate.NewLimiter(limit, cfg.Burst)
	return f
}

// Fetch GETs rawURL. Transport failures, timeouts and redirect loops are
// returned as errors; any HTTP status is returned as a Page.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Page{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		FinalURL:   resp.Request.URL.String(),
		Body:       body,
	}, nil
}
