// Package app contains the application setup for the catalog service.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/catalog/internal/config"
	"github.com/abgdnv/catalog/internal/platform/metrics"
	"github.com/abgdnv/catalog/internal/platform/ratelimit"
	"github.com/abgdnv/catalog/internal/platform/server"
	"github.com/abgdnv/catalog/internal/platform/web"
	"github.com/abgdnv/catalog/internal/product/service"
	"github.com/abgdnv/catalog/internal/product/store"
	"github.com/abgdnv/catalog/internal/product/transport/rest"
	"github.com/abgdnv/catalog/internal/product/validation"
	"github.com/go-chi/chi/v5"
)

type Dependencies struct {
	ProductService service.ProductService
	Responder      *web.ErrorResponder
	Validator      *validation.Validator
	Logger         *slog.Logger
	APIKey         string
	// Metrics is nil when metrics are disabled.
	Metrics     *metrics.ServerMetrics
	MetricsPath string
	// Limiter is nil when rate limiting is disabled.
	Limiter *ratelimit.IPLimiter
}

// SetupDependencies builds the catalog on a seeded in-memory store.
// ctx bounds the lifetime of background work such as rate limiter eviction.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...store.Option) *Dependencies {
	seed := []store.Option{store.WithSeed(store.Fixtures(time.Now().UTC())...)}
	productStore := store.NewInMemoryStore(append(seed, opts...)...)

	deps := &Dependencies{
		ProductService: service.NewService(productStore),
		Responder:      web.NewErrorResponder(logger),
		Validator:      validation.NewValidator(cfg.HTTPServer.MaxBodyBytes),
		Logger:         logger,
		APIKey:         cfg.Auth.APIKey,
		MetricsPath:    cfg.Metrics.Path,
	}

	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New()
		deps.Metrics.ObserveCatalogSize(func() float64 {
			stats, err := productStore.Stats(context.Background())
			if err != nil {
				return 0
			}
			return float64(stats.TotalProducts)
		})
	}

	if cfg.RateLimit.Enabled {
		limiterLogger := logger.With("component", "ratelimit")
		limiterOpts := []ratelimit.Option{
			ratelimit.WithRate(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
			ratelimit.WithTTL(cfg.RateLimit.TTL),
			ratelimit.WithOnFirstDenied(func(ip string) {
				limiterLogger.Warn("Client exceeded rate limit", "ip", ip)
			}),
		}
		if deps.Metrics != nil {
			limiterOpts = append(limiterOpts, ratelimit.WithOnDenied(func(string) { deps.Metrics.IncRateLimitDenied() }))
		}
		deps.Limiter = ratelimit.New(ctx, limiterOpts...)
	}

	return deps
}

// SetupHttpHandler initializes the router with its middleware and routes.
// Used by tests to exercise the full pipeline.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger, deps.Responder, deps.Metrics)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the catalog.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	var guards []func(http.Handler) http.Handler
	if deps.Limiter != nil {
		guards = append(guards, deps.Limiter.Middleware(deps.Responder))
	}
	guards = append(guards, web.APIKeyAuth(deps.APIKey, deps.Logger))

	productHandler := rest.NewHandler(deps.ProductService, deps.Validator, deps.Responder, deps.Logger, guards...)
	productHandler.RegisterRoutes(mux)

	if deps.Metrics != nil {
		mux.Method(http.MethodGet, deps.MetricsPath, deps.Metrics.Handler())
	}
}

// SetupHttpServer creates and configures an HTTP server for the catalog.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Addr:           cfg.HTTPServer.Addr(),
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
