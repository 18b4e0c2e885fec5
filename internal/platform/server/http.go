package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/catalog/internal/platform/metrics"
	"github.com/abgdnv/catalog/internal/platform/web"
	"github.com/go-chi/chi/v5"
)

// HTTPConfig has the configuration for the HTTP server.
type HTTPConfig struct {
	Addr           string
	MaxHeaderBytes int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	ReadHeader     time.Duration
}

// NewHTTPServer creates and configures a new HTTP server instance.
func NewHTTPServer(cfg HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: cfg.ReadHeader,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// NewChiRouter creates a new Chi router with request ID injection, structured logging,
// optional request metrics and panic recovery, in that order.
// m may be nil when metrics are disabled.
func NewChiRouter(logger *slog.Logger, responder *web.ErrorResponder, m *metrics.ServerMetrics) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(web.RequestIDInjector)
	mux.Use(web.StructuredLogger(logger))
	var onPanic func()
	if m != nil {
		mux.Use(m.Middleware)
		onPanic = m.IncHttpPanic
	}
	mux.Use(web.Recoverer(responder, onPanic))
	return mux
}
