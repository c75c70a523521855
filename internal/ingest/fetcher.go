package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/ppiankov/gpuscout/internal/logging"
	"github.com/ppiankov/gpuscout/internal/model"
)

var (
	// ErrUnknownMarketplace is returned when no selectors are configured for a marketplace
	ErrUnknownMarketplace = errors.New("unknown marketplace")
	// ErrDisallowed is returned when robots.txt forbids fetching a page
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// Fetcher downloads marketplace result pages and parses their listings
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBytes     int64
	marketplaces map[string]model.Selectors
	robots       *RobotsChecker
	limiter      *Limiter
	logger       logging.Logger
	now          func() time.Time
	sleep        func(context.Context, time.Duration) error
}

// NewFetcher creates a fetcher from configuration. Robots checking is
// skipped when cfg.HTTP.RespectRobots is false.
func NewFetcher(cfg *model.Config, logger logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	client := &http.Client{
		Timeout:   cfg.HTTP.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	markets := make(map[string]model.Selectors, len(cfg.Marketplaces))
	for _, m := range cfg.Marketplaces {
		markets[m.Name] = m.Selectors
	}

	f := &Fetcher{
		httpClient:   client,
		userAgent:    cfg.HTTP.UserAgent,
		maxBytes:     cfg.HTTP.MaxBodyBytes,
		marketplaces: markets,
		limiter:      NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		logger:       logger,
		now:          time.Now,
		sleep:        sleepContext,
	}
	if cfg.HTTP.RespectRobots {
		f.robots = NewRobotsChecker(client, cfg.HTTP.UserAgent)
	}
	return f
}

// proxyFunc uses explicit proxies when configured, else the environment
func proxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	pf := (&httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}).ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return pf(req.URL)
	}
}

// FetchListings fetches one result page and returns the listings on it
func (f *Fetcher) FetchListings(ctx context.Context, rawURL, marketplace string) ([]model.RawListing, error) {
	sel, ok := f.marketplaces[marketplace]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarketplace, marketplace)
	}

	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("check robots.txt: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		if host, err := hostOf(rawURL); err == nil {
			f.limiter.SlowDown(host, crawlDelay)
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()
	listings, err := f.fetchWithRetry(ctx, rawURL, func(resp *http.Response) ([]model.RawListing, error) {
		var body io.Reader = resp.Body
		if f.maxBytes > 0 {
			body = io.LimitReader(resp.Body, f.maxBytes)
		}
		return ParseHTML(body, sel, marketplace, resp.Request.URL)
	})
	if err != nil {
		return nil, err
	}

	scrapedAt := f.now().UTC()
	for i := range listings {
		listings[i].ScrapedAt = scrapedAt
	}

	f.logger.Debug("page fetched",
		logging.String("url", rawURL),
		logging.String("marketplace", marketplace),
		logging.Int("listings", len(listings)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return listings, nil
}

// StatusError is a non-2xx response
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// Retryable reports server-side and throttling failures
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

const maxAttempts = 3

// fetchWithRetry GETs rawURL and hands a 2xx response to parse. Transport
// failures, 429 and 5xx are retried with linear backoff.
func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string, parse func(*http.Response) ([]model.RawListing, error)) ([]model.RawListing, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		listings, err := f.fetchOnce(ctx, rawURL, parse)
		if err == nil {
			return listings, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == maxAttempts {
			break
		}

		f.logger.Debug("retrying fetch",
			logging.String("url", rawURL),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		if err := f.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, parse func(*http.Response) ([]model.RawListing, error)) ([]model.RawListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("fetch: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return parse(resp)
}

// transportError marks a failure before any response arrived
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var te *transportError
	return errors.As(err, &te)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
