package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/gpuscout/internal/cache"
	"github.com/ppiankov/gpuscout/internal/logging"
	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/telemetry"
)

// Standardizer turns one raw listing into a record
type Standardizer interface {
	Standardize(l model.RawListing) (model.StandardizedRecord, error)
	Fingerprint() string
}

// StandardizeJob standardizes a single listing
type StandardizeJob struct {
	Index   int
	Listing model.RawListing

	standardizer Standardizer
	cache        cache.Cache
}

// Execute runs the job, consulting the cache first
func (j *StandardizeJob) Execute(ctx context.Context) Result {
	res := &RecordResult{Index: j.Index, Listing: j.Listing}
	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}

	var key string
	if j.cache != nil {
		key = cache.Key(j.standardizer.Fingerprint(), j.Listing)
		if rec, ok := j.cache.Get(key); ok {
			res.Record = &rec
			res.Cached = true
			return res
		}
	}

	rec, err := j.standardizer.Standardize(j.Listing)
	if err != nil {
		res.Error = err
		return res
	}
	res.Record = &rec

	if j.cache != nil {
		res.CacheErr = j.cache.Set(key, rec)
	}
	return res
}

// RecordResult is the outcome of standardizing one listing
type RecordResult struct {
	Index    int
	Listing  model.RawListing
	Record   *model.StandardizedRecord
	Cached   bool
	Error    error
	CacheErr error // Cache write failure; the record is still valid
}

// GetError returns the standardization error
func (r *RecordResult) GetError() error {
	return r.Error
}

// BatchProcessor standardizes many listings concurrently
type BatchProcessor struct {
	standardizer Standardizer
	concurrency  int
	cache        cache.Cache
	metrics      *telemetry.Metrics
	logger       logging.Logger
}

// BatchOption configures a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithCache memoizes records across batches
func WithCache(c cache.Cache) BatchOption {
	return func(b *BatchProcessor) { b.cache = c }
}

// WithMetrics records per-listing and per-batch metrics
func WithMetrics(m *telemetry.Metrics) BatchOption {
	return func(b *BatchProcessor) { b.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) BatchOption {
	return func(b *BatchProcessor) { b.logger = l }
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(s Standardizer, concurrency int, opts ...BatchOption) *BatchProcessor {
	b := &BatchProcessor{
		standardizer: s,
		concurrency:  concurrency,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Process standardizes listings and returns one result per listing, in input
// order. Listings never started because ctx was cancelled carry ctx.Err().
func (b *BatchProcessor) Process(ctx context.Context, listings []model.RawListing) []*RecordResult {
	if len(listings) == 0 {
		return []*RecordResult{}
	}
	start := time.Now()

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, l := range listings {
		job := &StandardizeJob{
			Index:        i,
			Listing:      l,
			standardizer: b.standardizer,
			cache:        b.cache,
		}
		if err := pool.Submit(job); err != nil {
			break
		}
	}

	ordered := make([]*RecordResult, len(listings))
	for _, r := range pool.Wait() {
		rr := r.(*RecordResult)
		ordered[rr.Index] = rr
	}

	notStarted := ctx.Err()
	if notStarted == nil {
		notStarted = context.Canceled
	}
	failed := 0
	for i, rr := range ordered {
		if rr == nil {
			rr = &RecordResult{Index: i, Listing: listings[i], Error: notStarted}
			ordered[i] = rr
		}
		b.observe(rr)
		if rr.Error != nil {
			failed++
		}
	}

	elapsed := time.Since(start)
	b.metrics.ObserveBatch(len(listings), elapsed)
	b.logger.Info("batch standardized",
		logging.Int("listings", len(listings)),
		logging.Int("failed", failed),
		logging.Duration("elapsed", elapsed),
	)
	return ordered
}

func (b *BatchProcessor) observe(rr *RecordResult) {
	if rr.CacheErr != nil {
		b.logger.Warn("cache write failed", logging.Int("index", rr.Index), logging.Error(rr.CacheErr))
	}
	if rr.Error != nil {
		if !errors.Is(rr.Error, context.Canceled) && !errors.Is(rr.Error, context.DeadlineExceeded) {
			b.metrics.ObserveListingError()
			b.logger.Warn("listing rejected", logging.Int("index", rr.Index), logging.Error(rr.Error))
		}
		return
	}
	b.metrics.ObserveRecord(*rr.Record, rr.Cached)
}

// Records returns the records of successful results, in order
func Records(results []*RecordResult) []model.StandardizedRecord {
	out := make([]model.StandardizedRecord, 0, len(results))
	for _, r := range results {
		if r.Record != nil {
			out = append(out, *r.Record)
		}
	}
	return out
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
