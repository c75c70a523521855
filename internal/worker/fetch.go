package worker

import (
	"context"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/telemetry"
)

// Fetcher retrieves the listings on one marketplace result page
type Fetcher interface {
	FetchListings(ctx context.Context, url, marketplace string) ([]model.RawListing, error)
}

// FetchJob fetches a single result page
type FetchJob struct {
	URL         string
	Marketplace string
	Fetcher     Fetcher
}

// Execute executes the fetch job
func (j *FetchJob) Execute(ctx context.Context) Result {
	listings, err := j.Fetcher.FetchListings(ctx, j.URL, j.Marketplace)
	return &FetchResult{
		URL:         j.URL,
		Marketplace: j.Marketplace,
		Listings:    listings,
		Error:       err,
	}
}

// FetchResult represents the result of a fetch job
type FetchResult struct {
	URL         string
	Marketplace string
	Listings    []model.RawListing
	Error       error
}

// GetError returns the error from the fetch result
func (r *FetchResult) GetError() error {
	return r.Error
}

// FetchAll fetches every URL concurrently. Results come back in completion
// order; per-page failures are reported on the result, not returned.
func FetchAll(ctx context.Context, f Fetcher, marketplace string, urls []string, concurrency int, m *telemetry.Metrics) []*FetchResult {
	if len(urls) == 0 {
		return []*FetchResult{}
	}

	pool := NewPool(ctx, concurrency)
	pool.Start()

	for _, u := range urls {
		if err := pool.Submit(&FetchJob{URL: u, Marketplace: marketplace, Fetcher: f}); err != nil {
			break
		}
	}

	results := pool.Wait()
	out := make([]*FetchResult, len(results))
	for i, r := range results {
		fr := r.(*FetchResult)
		m.ObserveFetch(fr.Marketplace, len(fr.Listings), fr.Error)
		out[i] = fr
	}
	return out
}
