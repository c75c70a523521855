// Package api exposes the standardization engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/gpuscout/internal/engine"
	"github.com/ppiankov/gpuscout/internal/logging"
	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/store"
	"github.com/ppiankov/gpuscout/internal/telemetry"
	"github.com/ppiankov/gpuscout/internal/worker"
)

// MaxBatchListings caps the listings accepted by one batch request
const MaxBatchListings = 1000

const shutdownTimeout = 10 * time.Second

// Server is the HTTP API
type Server struct {
	router    *gin.Engine
	server    *http.Server
	processor *worker.BatchProcessor
	engine    *engine.Engine
	metrics   *telemetry.Metrics
	store     *store.Store
	logger    logging.Logger
}

// Option configures a Server
type Option func(*Server)

// WithStore enables GET /v1/stats and GET /v1/records over persisted records
func WithStore(s *store.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// NewServer wires routes around a batch processor. metrics may be nil, in
// which case /metrics is not served.
func NewServer(cfg model.ServerConfig, eng *engine.Engine, processor *worker.BatchProcessor, metrics *telemetry.Metrics, log logging.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:    gin.New(),
		processor: processor,
		engine:    eng,
		metrics:   metrics,
		logger:    log,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(log))
	s.routes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.health)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/v1")
	v1.POST("/standardize", s.standardize)
	v1.POST("/standardize/batch", s.standardizeBatch)
	if s.store != nil {
		v1.GET("/stats", s.stats)
		v1.GET("/records", s.records)
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", logging.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"fingerprint": s.engine.Fingerprint(),
	})
}

func (s *Server) standardize(c *gin.Context) {
	var listing model.RawListing
	if err := c.ShouldBindJSON(&listing); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing: " + err.Error()})
		return
	}

	res := s.processor.Process(c.Request.Context(), []model.RawListing{listing})[0]
	if res.Error != nil {
		c.JSON(statusFor(res.Error), gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, res.Record)
}

// BatchResponse is the body of a batch standardization
type BatchResponse struct {
	Records []*model.StandardizedRecord `json:"records"` // null where the listing failed
	Errors  []BatchError                `json:"errors"`
}

// BatchError reports a listing that produced no record
type BatchError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

func (s *Server) standardizeBatch(c *gin.Context) {
	var listings []model.RawListing
	if err := c.ShouldBindJSON(&listings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listings: " + err.Error()})
		return
	}
	if len(listings) > MaxBatchListings {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("batch of %d exceeds limit of %d", len(listings), MaxBatchListings),
		})
		return
	}

	results := s.processor.Process(c.Request.Context(), listings)
	resp := BatchResponse{
		Records: make([]*model.StandardizedRecord, len(results)),
		Errors:  []BatchError{},
	}
	for i, r := range results {
		if r.Error != nil {
			resp.Errors = append(resp.Errors, BatchError{Index: i, Error: r.Error.Error()})
			continue
		}
		resp.Records[i] = r.Record
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) stats(c *gin.Context) {
	counts, err := s.store.CountByManufacturer(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"by_manufacturer": counts})
}

// records lists persisted records of one model, cheapest first
func (s *Server) records(c *gin.Context) {
	gpuModel := strings.TrimSpace(c.Query("model"))
	if gpuModel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter model is required"})
		return
	}

	minConfidence := 0.0
	if raw := c.Query("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_confidence must be a number within [0, 1]"})
			return
		}
		minConfidence = v
	}

	recs, err := s.store.ListByModel(c.Request.Context(), gpuModel, minConfidence)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "records unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": gpuModel, "records": recs})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrMissingTitle):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger logs one line per request
func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			msgs := make([]string, len(c.Errors))
			for i, e := range c.Errors {
				msgs[i] = e.Err.Error()
			}
			log.Error("HTTP request with errors", append(fields, logging.String("errors", strings.Join(msgs, "; ")))...)
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/healthz") || c.Request.URL.Path == "/metrics" {
			log.Debug("HTTP request", fields...)
			return
		}
		log.Info("HTTP request", fields...)
	}
}
