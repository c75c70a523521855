package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gpuscout/internal/model"
)

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.HTTP.UserAgent = "gpuscout-test/1.0"
	cfg.RateLimiting.RequestsPerSecond = 0
	return cfg
}

func noSleep(f *Fetcher) {
	f.sleep = func(context.Context, time.Duration) error { return nil }
}

func TestFetchListings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		default:
			assert.Equal(t, "gpuscout-test/1.0", r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, ebayPage)
		}
	}))
	defer server.Close()

	f := NewFetcher(testConfig(), nil)
	fixed := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	listings, err := f.FetchListings(context.Background(), server.URL+"/sch?q=gpu", "ebay")
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, fixed, listings[0].ScrapedAt)
	assert.Equal(t, server.URL+"/itm/2", listings[1].URL)
}

func TestFetchListings_RobotsDisallowed(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		pageHits.Add(1)
	}))
	defer server.Close()

	f := NewFetcher(testConfig(), nil)
	_, err := f.FetchListings(context.Background(), server.URL+"/private/page", "ebay")
	assert.True(t, errors.Is(err, ErrDisallowed))
	assert.Zero(t, pageHits.Load())
}

func TestFetchListings_RobotsIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		_, _ = fmt.Fprint(w, ebayPage)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.HTTP.RespectRobots = false
	listings, err := NewFetcher(cfg, nil).FetchListings(context.Background(), server.URL+"/sch", "ebay")
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestFetchListings_UnknownMarketplace(t *testing.T) {
	f := NewFetcher(testConfig(), nil)
	_, err := f.FetchListings(context.Background(), "http://127.0.0.1:1/", "craigslist")
	assert.True(t, errors.Is(err, ErrUnknownMarketplace))
}

func TestFetchListings_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, gumtreePage)
	}))
	defer server.Close()

	f := NewFetcher(testConfig(), nil)
	noSleep(f)

	listings, err := f.FetchListings(context.Background(), server.URL+"/search", "gumtree")
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestFetchListings_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(testConfig(), nil)
	noSleep(f)

	_, err := f.FetchListings(context.Background(), server.URL+"/gone", "ebay")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.EqualValues(t, 1, attempts.Load(), "404 is not retried")
}

func TestFetchListings_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewFetcher(testConfig(), nil)
	noSleep(f)

	_, err := f.FetchListings(context.Background(), server.URL+"/busy", "ebay")
	assert.Error(t, err)
	assert.EqualValues(t, maxAttempts, attempts.Load())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"503", &StatusError{StatusCode: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{StatusCode: 500, Status: "500 Internal Server Error"}, true},
		{"429", &StatusError{StatusCode: 429, Status: "429 Too Many Requests"}, true},
		{"404", &StatusError{StatusCode: 404, Status: "404 Not Found"}, false},
		{"403", &StatusError{StatusCode: 403, Status: "403 Forbidden"}, false},
		{"transport", &transportError{err: errors.New("fetch: connection refused")}, true},
		{"cancelled", &transportError{err: context.Canceled}, false},
		{"parse", errors.New("parse html: unexpected EOF"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryable(tt.err))
		})
	}
}

func TestProxyFunc(t *testing.T) {
	pf := proxyFunc("http://proxy.local:3128", "", "internal.example")

	req := httptest.NewRequest(http.MethodGet, "http://shop.example/page", nil)
	u, err := pf(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.local:3128", u.Host)

	req = httptest.NewRequest(http.MethodGet, "http://internal.example/page", nil)
	u, err = pf(req)
	require.NoError(t, err)
	assert.Nil(t, u, "no_proxy hosts go direct")
}
