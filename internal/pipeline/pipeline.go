// Package pipeline wires the standardization run end to end: listings are
// read or fetched, standardized in parallel, filtered, summarized and written
// out to files and the database.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/gpuscout/internal/cache"
	"github.com/ppiankov/gpuscout/internal/engine"
	"github.com/ppiankov/gpuscout/internal/export"
	"github.com/ppiankov/gpuscout/internal/ingest"
	"github.com/ppiankov/gpuscout/internal/logging"
	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/score"
	"github.com/ppiankov/gpuscout/internal/store"
	"github.com/ppiankov/gpuscout/internal/telemetry"
	"github.com/ppiankov/gpuscout/internal/worker"
)

// Pipeline orchestrates a standardization run
type Pipeline struct {
	engine    *engine.Engine
	processor *worker.BatchProcessor
	fetcher   *ingest.Fetcher
	store     *store.Store // Optional (nil if not persisting)
	metrics   *telemetry.Metrics
	logger    logging.Logger
	config    *model.Config
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithStore persists every emitted batch
func WithStore(s *store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithMetrics records engine and fetch metrics
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline builds the engine from cfg.Engine and the supporting layers
func NewPipeline(cfg *model.Config, log logging.Logger, opts ...Option) (*Pipeline, error) {
	if log == nil {
		log = logging.NewNop()
	}

	eng, err := engine.New(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	p := &Pipeline{
		engine: eng,
		logger: log,
		config: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}

	batchOpts := []worker.BatchOption{worker.WithLogger(log), worker.WithMetrics(p.metrics)}
	if c := cache.New(cfg.Cache); c != nil {
		batchOpts = append(batchOpts, worker.WithCache(c))
	}
	p.processor = worker.NewBatchProcessor(eng, cfg.Concurrency.Workers, batchOpts...)
	p.fetcher = ingest.NewFetcher(cfg, log)

	return p, nil
}

// Engine returns the compiled engine
func (p *Pipeline) Engine() *engine.Engine {
	return p.engine
}

// Processor returns the batch processor, shared with the HTTP API
func (p *Pipeline) Processor() *worker.BatchProcessor {
	return p.processor
}

// Filters are downstream record filters; the engine never applies them
type Filters struct {
	MinConfidence float64
	Series        []string // Keep only these GPU series when non-empty
}

// RunResult is the outcome of one run
type RunResult struct {
	Records  []model.StandardizedRecord // Records that passed the filters
	Rejected []*worker.RecordResult     // Listings that produced no record
	Filtered int                        // Records dropped by the filters
	Stats    score.Summary              // Over every record, before filtering
	Elapsed  time.Duration
}

// StandardizeFile reads listings from path and standardizes them
func (p *Pipeline) StandardizeFile(ctx context.Context, path string, f Filters) (*RunResult, error) {
	listings, err := ingest.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read listings: %w", err)
	}
	p.logger.Info("listings loaded", logging.String("path", path), logging.Int("count", len(listings)))
	return p.Standardize(ctx, listings, f), nil
}

// Standardize runs the batch processor, then summarizes and filters
func (p *Pipeline) Standardize(ctx context.Context, listings []model.RawListing, f Filters) *RunResult {
	start := time.Now()
	results := p.processor.Process(ctx, listings)

	res := &RunResult{}
	for _, r := range results {
		if r.Error != nil {
			res.Rejected = append(res.Rejected, r)
		}
	}

	all := worker.Records(results)
	res.Stats = score.Summarize(all)
	res.Records = Filter(all, f)
	res.Filtered = len(all) - len(res.Records)
	res.Elapsed = time.Since(start)
	return res
}

// Filter keeps records at or above the confidence floor and, when series are
// given, only records of those series (case-insensitive)
func Filter(records []model.StandardizedRecord, f Filters) []model.StandardizedRecord {
	want := make(map[string]bool, len(f.Series))
	for _, s := range f.Series {
		if s = strings.TrimSpace(s); s != "" {
			want[strings.ToLower(s)] = true
		}
	}

	out := make([]model.StandardizedRecord, 0, len(records))
	for _, r := range records {
		if r.ConfidenceScore < f.MinConfidence {
			continue
		}
		if len(want) > 0 && (r.GPUSeries == nil || !want[strings.ToLower(*r.GPUSeries)]) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Fetch downloads result pages of one marketplace concurrently. Pages that
// fail are logged and skipped; the error is returned only when every page
// failed.
func (p *Pipeline) Fetch(ctx context.Context, marketplace string, urls []string) ([]model.RawListing, error) {
	if _, ok := p.config.Marketplace(marketplace); !ok {
		return nil, fmt.Errorf("%w: %s", ingest.ErrUnknownMarketplace, marketplace)
	}

	results := worker.FetchAll(ctx, p.fetcher, marketplace, urls, p.config.Concurrency.Workers, p.metrics)

	var listings []model.RawListing
	var lastErr error
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			lastErr = r.Error
			p.logger.Warn("fetch failed", logging.String("url", r.URL), logging.Error(r.Error))
			continue
		}
		listings = append(listings, r.Listings...)
	}
	if len(results) > 0 && failed == len(results) {
		return nil, fmt.Errorf("all %d pages failed: %w", failed, lastErr)
	}
	return listings, nil
}

// Emit writes records to path ("-" for w) in the configured format and
// persists them when a store is attached
func (p *Pipeline) Emit(ctx context.Context, records []model.StandardizedRecord, path string, w io.Writer) error {
	format := p.config.Output.Format
	if path == "" || path == "-" {
		if err := export.Write(w, format, records); err != nil {
			return fmt.Errorf("write records: %w", err)
		}
	} else if err := export.WriteFile(path, format, records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	if p.store != nil {
		if err := p.store.SaveRecords(ctx, records); err != nil {
			return fmt.Errorf("persist records: %w", err)
		}
		p.logger.Info("records persisted", logging.Int("count", len(records)))
	}
	return nil
}

// WriteListings writes fetched listings as JSONL, the input format of
// StandardizeFile
func WriteListings(path string, listings []model.RawListing) (err error) {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create file %q: %w", path, err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return ingest.WriteJSONL(w, listings)
}
