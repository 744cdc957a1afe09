package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/terra-clan/diagnosis-engine/internal/api"
	"github.com/terra-clan/diagnosis-engine/internal/catalog"
	"github.com/terra-clan/diagnosis-engine/internal/config"
	"github.com/terra-clan/diagnosis-engine/internal/diagnosis"
	"github.com/terra-clan/diagnosis-engine/internal/health"
	"github.com/terra-clan/diagnosis-engine/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("starting diagnosis-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	store, err := storage.Open(initCtx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	slog.Info("store connected successfully", "driver", cfg.Store.Driver)

	// Readiness checks
	registry := health.NewRegistry()
	registry.Register(health.NewStoreChecker(cfg.Store.Driver, store))

	var pgChecker *health.PostgresChecker
	if cfg.Store.Driver == config.DriverPostgres {
		pgChecker, err = health.NewPostgresChecker(cfg.Database.DSN)
		if err != nil {
			slog.Error("failed to create postgres checker", "error", err)
			os.Exit(1)
		}
		registry.Register(pgChecker)
	}

	// Load question catalog
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		slog.Warn("failed to load catalog from dir", "dir", cfg.Catalog.Dir, "error", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Catalog.ReloadInterval > 0 {
		catalog.NewReloader(loader, cfg.Catalog.Dir, cfg.Catalog.ReloadInterval).Start(ctx)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := diagnosis.NewService(loader, store, diagnosis.Config{
		LegacyFallback: cfg.Store.LegacyFallback,
		Metrics:        diagnosis.MustNewMetrics(reg),
	})

	// Setup HTTP server
	server := api.NewServer(cfg.Server, engine, loader, registry, reg)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if pgChecker != nil {
		if err := pgChecker.Close(); err != nil {
			slog.Error("postgres checker close error", "error", err)
		}
	}

	if err := store.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("diagnosis-engine stopped")
}
