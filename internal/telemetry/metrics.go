// Package telemetry exports Prometheus metrics for standardization runs
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/gpuscout/internal/model"
)

const namespace = "gpuscout"

// Metrics holds the standardization metrics. Each instance owns its registry
// so several can coexist (tests, one per server).
type Metrics struct {
	registry *prometheus.Registry

	RecordsTotal    *prometheus.CounterVec
	FlagsTotal      *prometheus.CounterVec
	ListingErrors   prometheus.Counter
	CacheHits       prometheus.Counter
	Confidence      prometheus.Histogram
	BatchDuration   prometheus.Histogram
	BatchSize       prometheus.Histogram
	FetchesTotal    *prometheus.CounterVec
	ListingsFetched *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Standardized records by GPU manufacturer",
		}, []string{"gpu_manufacturer"}),
		FlagsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_flags_total",
			Help:      "Quality flags raised by name",
		}, []string{"flag"}),
		ListingErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_errors_total",
			Help:      "Listings that could not be standardized",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Records served from the record cache",
		}),
		Confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Distribution of record confidence scores",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to standardize one batch",
			Buckets:   prometheus.DefBuckets,
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Listings per batch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Marketplace page fetches by outcome",
		}, []string{"marketplace", "outcome"}),
		ListingsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_fetched_total",
			Help:      "Raw listings parsed from marketplace pages",
		}, []string{"marketplace"}),
	}
}

// ObserveRecord records one standardized record
func (m *Metrics) ObserveRecord(r model.StandardizedRecord, cached bool) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(string(r.GPUManufacturer)).Inc()
	for _, f := range r.QualityFlags {
		m.FlagsTotal.WithLabelValues(f).Inc()
	}
	m.Confidence.Observe(r.ConfidenceScore)
	if cached {
		m.CacheHits.Inc()
	}
}

// ObserveListingError records a listing that produced no record
func (m *Metrics) ObserveListingError() {
	if m == nil {
		return
	}
	m.ListingErrors.Inc()
}

// ObserveBatch records the size and duration of a batch
func (m *Metrics) ObserveBatch(size int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(size))
	m.BatchDuration.Observe(elapsed.Seconds())
}

// ObserveFetch records one marketplace fetch
func (m *Metrics) ObserveFetch(marketplace string, listings int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.FetchesTotal.WithLabelValues(marketplace, outcome).Inc()
	m.ListingsFetched.WithLabelValues(marketplace).Add(float64(listings))
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
