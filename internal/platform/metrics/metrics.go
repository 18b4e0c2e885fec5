// Package metrics exposes Prometheus metrics for the HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute labels requests that no route pattern matched, keeping label cardinality bounded.
const unmatchedRoute = "unmatched"

var (
	// Catalog requests are served from memory, so most finish well under a millisecond.
	latencyBuckets = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.25, 1}
	// A single product envelope is a few hundred bytes; list pages grow with limit.
	responseSizeBuckets = []float64{128, 512, 2048, 8192, 32768, 131072}
)

// ServerMetrics holds the catalog's Prometheus registry and collectors.
type ServerMetrics struct {
	reg                  *prometheus.Registry
	handler              http.Handler
	inflight             prometheus.Gauge
	reqTotal             *prometheus.CounterVec
	reqDur               *prometheus.HistogramVec
	respBytes            *prometheus.HistogramVec
	errorResponses       *prometheus.CounterVec
	httpPanicTotal       prometheus.Counter
	ratelimitDeniedTotal prometheus.Counter
}

// New returns a fresh registry with the Go and process collectors and the catalog HTTP metrics.
// Labels are limited to method, chi route pattern, status and error class.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Catalog API requests currently being served",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Catalog API requests served, by method, route pattern and status code",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time spent serving a catalog API request, by method and route pattern",
			Buckets: latencyBuckets,
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of catalog API response bodies, by method and route pattern",
			Buckets: responseSizeBuckets,
		}, []string{"method", "route"}),
		errorResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_error_responses_total",
			Help: "Catalog API error envelopes sent, by method, route pattern and class (client or server)",
		}, []string{"method", "route", "class"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Handler panics recovered into a 500 envelope",
		}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Mutating catalog requests rejected with 429 by the per-IP limiter",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorResponses,
		m.httpPanicTotal,
		m.ratelimitDeniedTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

// ObserveCatalogSize registers a gauge that reports the number of stored products on every scrape.
func (m *ServerMetrics) ObserveCatalogSize(size func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "catalog_products",
		Help: "Number of products currently held in the catalog",
	}, size))
}

// Middleware records every request against its chi route pattern once the handler returns.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// handlers that never Write/WriteHeader
		statusCode := ww.Status()
		if statusCode == 0 {
			statusCode = http.StatusOK
		}

		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = unmatchedRoute
		}

		m.reqTotal.WithLabelValues(r.Method, route, strconv.Itoa(statusCode)).Inc()
		m.reqDur.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.respBytes.WithLabelValues(r.Method, route).Observe(float64(ww.BytesWritten()))
		if class := errorClass(statusCode); class != "" {
			m.errorResponses.WithLabelValues(r.Method, route, class).Inc()
		}
	})
}

func errorClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server"
	case status >= http.StatusBadRequest:
		return "client"
	default:
		return ""
	}
}
