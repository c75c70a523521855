package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gpuscout/internal/engine"
	"github.com/ppiankov/gpuscout/internal/logging"
	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/store"
	"github.com/ppiankov/gpuscout/internal/telemetry"
	"github.com/ppiankov/gpuscout/internal/worker"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *telemetry.Metrics) {
	t.Helper()
	eng, err := engine.New(model.DefaultTables())
	require.NoError(t, err)

	metrics := telemetry.NewMetrics()
	processor := worker.NewBatchProcessor(eng, 2, worker.WithMetrics(metrics))
	srv := NewServer(model.ServerConfig{Addr: ":0"}, eng, processor, metrics, logging.NewNop(), opts...)
	return srv, metrics
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestStandardize(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodPost, "/v1/standardize",
		`{"title":"MSI GeForce RTX 4070 Ti Gaming X 12GB","price_text":"£699.99","condition_text":"Brand new","marketplace":"ebay"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rec model.StandardizedRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, model.ManufacturerNVIDIA, rec.GPUManufacturer)
	require.NotNil(t, rec.GPUModel)
	assert.Equal(t, "4070 Ti", *rec.GPUModel)
	assert.Equal(t, "ebay", rec.Marketplace)
}

func TestStandardize_MissingTitle(t *testing.T) {
	srv, metrics := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodPost, "/v1/standardize", `{"title":"   ","price_text":"£10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "title")

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ListingErrors))
}

func TestStandardize_BadJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodPost, "/v1/standardize", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStandardizeBatch(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodPost, "/v1/standardize/batch", `[
		{"title":"Sapphire Pulse RX 7800 XT 16GB","price_text":"£480"},
		{"title":""},
		{"title":"Intel Arc A770 16GB"}
	]`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 3)
	assert.Equal(t, model.ManufacturerAMD, resp.Records[0].GPUManufacturer)
	assert.Nil(t, resp.Records[1])
	assert.Equal(t, model.ManufacturerIntel, resp.Records[2].GPUManufacturer)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Index)
}

func TestStandardizeBatch_TooLarge(t *testing.T) {
	srv, _ := newTestServer(t)

	listings := make([]model.RawListing, MaxBatchListings+1)
	for i := range listings {
		listings[i] = model.RawListing{Title: "RTX 3060"}
	}
	body, err := json.Marshal(listings)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/standardize/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), srv.engine.Fingerprint())
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	do(t, srv.Handler(), http.MethodPost, "/v1/standardize", `{"title":"RTX 3080 10GB"}`)
	w := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gpu_manufacturer="NVIDIA"`)
}

func TestStats(t *testing.T) {
	st, err := store.Open(model.StoreConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.SaveRecords(context.Background(), []model.StandardizedRecord{{
		GPUManufacturer: model.ManufacturerAMD,
		Condition:       model.ConditionUnknown,
		QualityFlags:    []string{},
		Title:           "RX 6800",
	}}))

	srv, _ := newTestServer(t, WithStore(st))
	w := do(t, srv.Handler(), http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"by_manufacturer":[{"gpu_manufacturer":"AMD","count":1}]}`, w.Body.String())
}

func TestRecords(t *testing.T) {
	st, err := store.Open(model.StoreConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Migrate(context.Background()))

	srv, _ := newTestServer(t, WithStore(st))
	for _, title := range []string{"MSI RTX 4070 12GB", "RTX 4070 spares", "RX 6800"} {
		rec, err := srv.engine.Standardize(model.RawListing{Title: title, PriceText: "£400", ConditionText: "Brand new"})
		require.NoError(t, err)
		require.NoError(t, st.SaveRecords(context.Background(), []model.StandardizedRecord{rec}))
	}

	w := do(t, srv.Handler(), http.MethodGet, "/v1/records?model=4070", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Model   string                     `json:"model"`
		Records []model.StandardizedRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "4070", body.Model)
	require.Len(t, body.Records, 2)
	for _, r := range body.Records {
		assert.Equal(t, "4070", *r.GPUModel)
	}

	w = do(t, srv.Handler(), http.MethodGet, "/v1/records?model=4070&min_confidence=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Records, 1, "only the fully identified listing reaches 1.0")
}

func TestRecords_BadQuery(t *testing.T) {
	st, err := store.Open(model.StoreConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Migrate(context.Background()))

	srv, _ := newTestServer(t, WithStore(st))
	for _, path := range []string{"/v1/records", "/v1/records?model=4070&min_confidence=high", "/v1/records?model=4070&min_confidence=2"} {
		w := do(t, srv.Handler(), http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestStats_NotServedWithoutStore(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/v1/stats", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv.Handler(), http.MethodGet, "/v1/records?model=4070", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
