package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		robotsHits.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: gpuscout\nDisallow: /admin\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer server.Close()

	rc := NewRobotsChecker(server.Client(), "gpuscout/0.1 (+https://example.com)")
	ctx := context.Background()

	allowed, delay, err := rc.CanFetch(ctx, server.URL+"/sch/gpu")
	require.NoError(t, err)
	assert.True(t, allowed, "group for our product token applies, not the catch-all")
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = rc.CanFetch(ctx, server.URL+"/admin/x")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.EqualValues(t, 1, robotsHits.Load(), "robots.txt is cached per host")
}

func TestRobotsChecker_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	rc := NewRobotsChecker(&http.Client{Timeout: time.Second}, "gpuscout")
	allowed, _, err := rc.CanFetch(context.Background(), url+"/page")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestProductToken(t *testing.T) {
	assert.Equal(t, "gpuscout", productToken("gpuscout/0.1 (+https://example.com)"))
	assert.Equal(t, "Mozilla", productToken("Mozilla/5.0 (X11)"))
	assert.Equal(t, "", productToken(""))
}
