// Command frames produces the per-day frame sequences for a target
// year: one JSON document per region, kind and day-of-year, written
// under FRAMES_DIR. After each region's sequence it combines the
// rendered images into an animation and publishes a frame-set event.
//
// Usage:
//
//	go run ./cmd/frames -year 2026 -regions global,austria -kind daily
//
// Without -regions every registered region is processed; -kind all
// produces the daily, cummean and both sequences in turn.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/foehnwatch/tas-tracker/internal/adapter/era5"
	"github.com/foehnwatch/tas-tracker/internal/adapter/kafka"
	"github.com/foehnwatch/tas-tracker/internal/adapter/magick"
	"github.com/foehnwatch/tas-tracker/internal/adapter/postgres"
	"github.com/foehnwatch/tas-tracker/internal/config"
	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/observability"
	"github.com/foehnwatch/tas-tracker/internal/pipeline"
	"github.com/foehnwatch/tas-tracker/internal/regions"
	"github.com/foehnwatch/tas-tracker/internal/render"
)

func main() {
	if err := run(); err != nil {
		slog.Error("frame run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	year := flag.Int("year", time.Now().Year(), "target year to analyze")
	regionList := flag.String("regions", "", "comma-separated region ids (default: all registered)")
	kindFlag := flag.String("kind", "all", "frame kind: daily, cummean, both or all")
	langFlag := flag.String("lang", "german", "label language: german or english")
	useMean := flag.Bool("mean", false, "draw the historical mean as center line")
	useMedian := flag.Bool("median", false, "draw the historical median as center line (the default)")
	threshold := flag.Float64("threshold", 1, "exceedance threshold handed to classification")
	overwrite := flag.Bool("overwrite", false, "rebuild frames and animations that already exist")
	outFlag := flag.String("out", "", "output directory (default: FRAMES_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	center, err := render.ParseCenter(*useMean, *useMedian)
	if err != nil {
		return err
	}
	language, err := regions.ParseLanguage(*langFlag)
	if err != nil {
		return err
	}
	kinds, err := parseKinds(*kindFlag)
	if err != nil {
		return err
	}

	registry := regions.Default()
	if cfg.RegionsFile != "" {
		registry, err = regions.Load(cfg.RegionsFile)
		if err != nil {
			return fmt.Errorf("load region registry: %w", err)
		}
	}

	regionIDs := registry.IDs()
	if *regionList != "" {
		regionIDs = splitList(*regionList)
	}

	outDir := cfg.FramesDir
	if *outFlag != "" {
		outDir = *outFlag
	}

	store, err := postgres.Open(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("open archive store: %w", err)
	}
	defer store.Close()

	var fetcher domain.PartialYearFetcher
	if cfg.NRTBaseURL != "" {
		client := era5.NewClient(cfg.NRTBaseURL, cfg.NRTTimeout, metrics, logger)
		fetcher = era5.NewCachedFetcher(client, cfg.NRTCacheTTL, nil, metrics)
	}

	var publisher pipeline.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg, logger)
		defer kp.Close()
		publisher = kp
		logger.Info("frame-set events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	compositor := magick.New(cfg.ConvertBin, 0, cfg.GIFDelay, cfg.GIFResize, logger)
	engine := pipeline.NewEngine(store, fetcher, registry, store, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, kind := range kinds {
		opts := pipeline.FrameOptions{
			Kind:      kind,
			Language:  language,
			Center:    center,
			Threshold: *threshold,
		}
		runner := pipeline.NewRunner(engine, compositor, publisher, outDir, opts, *overwrite, logger, metrics)
		if err := runner.Run(ctx, regionIDs, *year); err != nil {
			return err
		}
	}
	return nil
}

// parseKinds resolves the -kind flag; "all" produces the three
// sequences the posting flow consumes.
func parseKinds(s string) ([]render.Kind, error) {
	if s == "all" {
		return []render.Kind{render.KindDaily, render.KindCumMean, render.KindBoth}, nil
	}
	kind, err := render.ParseKind(s)
	if err != nil {
		return nil, err
	}
	return []render.Kind{kind}, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
