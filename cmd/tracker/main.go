package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/foehnwatch/tas-tracker/internal/adapter/era5"
	"github.com/foehnwatch/tas-tracker/internal/adapter/httpapi"
	"github.com/foehnwatch/tas-tracker/internal/adapter/postgres"
	"github.com/foehnwatch/tas-tracker/internal/config"
	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/observability"
	"github.com/foehnwatch/tas-tracker/internal/pipeline"
	"github.com/foehnwatch/tas-tracker/internal/regions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry := regions.Default()
	if cfg.RegionsFile != "" {
		registry, err = regions.Load(cfg.RegionsFile)
		if err != nil {
			logger.Error("failed to load region registry", "error", err)
			os.Exit(1)
		}
		logger.Info("region registry override loaded", "path", cfg.RegionsFile, "regions", len(registry.IDs()))
	}

	store, err := postgres.Open(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to open archive store", "error", err)
		os.Exit(1)
	}

	// Near-real-time feed is feature-gated via NRT_BASE_URL. Without it
	// the service still serves every archived year.
	var fetcher domain.PartialYearFetcher
	if cfg.NRTBaseURL != "" {
		client := era5.NewClient(cfg.NRTBaseURL, cfg.NRTTimeout, metrics, logger)
		fetcher = era5.NewCachedFetcher(client, cfg.NRTCacheTTL, nil, metrics)
		logger.Info("near-real-time feed enabled", "base_url", cfg.NRTBaseURL, "cache_ttl", cfg.NRTCacheTTL)
	} else {
		logger.Info("near-real-time feed disabled, serving archived years only")
	}

	engine := pipeline.NewEngine(store, fetcher, registry, store, logger, metrics)
	srv := httpapi.NewServer(cfg.HTTPAddr, engine, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("archive store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
