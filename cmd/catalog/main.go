// Package main runs the product catalog HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/catalog/internal/config"
	"github.com/abgdnv/catalog/internal/platform/logger"
	"github.com/abgdnv/catalog/internal/product/app"
	"golang.org/x/sync/errgroup"
)

const serviceName = "catalog"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration and serves the catalog, plus pprof when enabled, until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	appLogger, closeLog := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		App:    serviceName,
	})
	defer func() {
		if err := closeLog(); err != nil {
			log.Printf("failed to close log file: %v", err)
		}
	}()
	slog.SetDefault(appLogger)

	if cfg.UsesDefaultAPIKey() {
		appLogger.Warn("Using the built-in default API key, set API_KEY or CATALOG_AUTH_APIKEY before exposing the service")
	}

	httpServer, pprofServer := setupServers(ctx, appLogger, cfg)

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		appLogger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("Shutting down HTTP server...")
		return shutdown(httpServer, cfg.Shutdown.Timeout)
	})

	if cfg.PProf.Enabled {
		g.Go(func() error {
			appLogger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			appLogger.Info("Shutting down pprof server...")
			return shutdown(pprofServer, cfg.Shutdown.Timeout)
		})
	} else {
		appLogger.Info("Pprof server is disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// setupServers builds the catalog HTTP server and the pprof server.
// The pprof server uses http.DefaultServeMux, where net/http/pprof registers its handlers.
func setupServers(ctx context.Context, appLogger *slog.Logger, cfg *config.Config) (*http.Server, *http.Server) {
	deps := app.SetupDependencies(ctx, cfg, appLogger)
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr:              cfg.PProf.Addr,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
	}
	return httpServer, pprofServer
}

func shutdown(server *http.Server, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
