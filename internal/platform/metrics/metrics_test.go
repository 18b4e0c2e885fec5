package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValues sums a metric family by its label set, keyed as method|route|status.
func counterValues(t *testing.T, reg *prometheus.Registry, name string) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			var parts []string
			for _, lp := range metric.GetLabel() {
				parts = append(parts, lp.GetValue())
			}
			value := metric.GetCounter().GetValue()
			if metric.GetGauge() != nil {
				value = metric.GetGauge().GetValue()
			}
			out[strings.Join(parts, "|")] += value
		}
	}
	return out
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	// given
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/api/products/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	// when
	for _, path := range []string{"/api/products/1", "/api/products/2", "/boom", "/nowhere", "/api/products/search"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	// then
	totals := counterValues(t, m.reg, "http_requests_total")
	assert.Equal(t, 2.0, totals["GET|/api/products/{id}|200"])
	assert.Equal(t, 1.0, totals["GET|/boom|500"])
	assert.Equal(t, 1.0, totals["GET|unmatched|404"])

	errorResponses := counterValues(t, m.reg, "http_error_responses_total")
	assert.Equal(t, map[string]float64{
		"GET|/boom|server":                1,
		"GET|unmatched|client":            1,
		"GET|/api/products/search|client": 1,
	}, errorResponses)
}

func TestMiddleware_NoWriteDefaultsTo200(t *testing.T) {
	// given
	m := New()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// when
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	// then
	totals := counterValues(t, m.reg, "http_requests_total")
	assert.Equal(t, map[string]float64{"GET|unmatched|200": 1}, totals)
}

func TestMiddleware_InflightGauge(t *testing.T) {
	// given
	m := New()
	var during map[string]float64
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = counterValues(t, m.reg, "http_inflight_requests")
	}))

	// when
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	// then
	assert.Equal(t, 1.0, during[""])
	assert.Equal(t, 0.0, counterValues(t, m.reg, "http_inflight_requests")[""])
}

func TestCounters(t *testing.T) {
	// given
	m := New()

	// when
	m.IncHttpPanic()
	m.IncRateLimitDenied()
	m.IncRateLimitDenied()

	// then
	assert.Equal(t, 1.0, counterValues(t, m.reg, "http_panic_total")[""])
	assert.Equal(t, 2.0, counterValues(t, m.reg, "http_requests_rate_limited_total")[""])
}

func TestHandler_ExposesCatalogSize(t *testing.T) {
	// given
	m := New()
	m.ObserveCatalogSize(func() float64 { return 2 })
	rec := httptest.NewRecorder()

	// when
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "catalog_products 2")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestErrorClass(t *testing.T) {
	testCases := []struct {
		status   int
		expected string
	}{
		{status: http.StatusOK, expected: ""},
		{status: http.StatusCreated, expected: ""},
		{status: http.StatusBadRequest, expected: "client"},
		{status: http.StatusRequestEntityTooLarge, expected: "client"},
		{status: http.StatusTooManyRequests, expected: "client"},
		{status: http.StatusInternalServerError, expected: "server"},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, errorClass(tc.status))
		})
	}
}

func TestNew_CatalogBuckets(t *testing.T) {
	// given
	m := New()
	m.reqDur.WithLabelValues(http.MethodGet, "/api/products").Observe(0.0003)
	m.respBytes.WithLabelValues(http.MethodGet, "/api/products").Observe(300)

	// when
	families, err := m.reg.Gather()

	// then
	require.NoError(t, err)
	bounds := map[string][]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			for _, b := range metric.GetHistogram().GetBucket() {
				bounds[f.GetName()] = append(bounds[f.GetName()], b.GetUpperBound())
			}
		}
	}
	assert.Equal(t, latencyBuckets, bounds["http_request_duration_seconds"])
	assert.Equal(t, responseSizeBuckets, bounds["http_response_size_bytes"])
}
