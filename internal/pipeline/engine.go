package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/observability"
	"github.com/foehnwatch/tas-tracker/internal/regions"
	"github.com/foehnwatch/tas-tracker/internal/render"
)

// HealthChecker reports whether a backing dependency can serve requests.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FrameOptions selects what one built frame contains.
type FrameOptions struct {
	Kind     render.Kind
	Language regions.Language
	Center   render.CenterLine
	// Day is the last day-of-year the frame shows. Zero means the
	// latest day the target series defines.
	Day int
	// Threshold is handed to exceedance classification unchanged.
	Threshold float64
}

// Engine runs one full analysis chain per frame: load the archive,
// attach the target year, truncate, rank, classify, assemble.
type Engine struct {
	loader   domain.BaseLoader
	fetcher  domain.PartialYearFetcher
	registry *regions.Registry
	health   HealthChecker
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewEngine creates an Engine. fetcher may be nil when no near-real-time
// source is configured, which limits targets to archived years; health
// may be nil when there is nothing to probe.
func NewEngine(loader domain.BaseLoader, fetcher domain.PartialYearFetcher, registry *regions.Registry, health HealthChecker, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		loader:   loader,
		fetcher:  fetcher,
		registry: registry,
		health:   health,
		logger:   logger,
		metrics:  metrics,
	}
}

// Regions exposes the registry backing this engine.
func (e *Engine) Regions() *regions.Registry {
	return e.registry
}

// CheckReadiness returns nil if the engine's dependencies can serve a
// frame request, or an error describing which probe failed.
func (e *Engine) CheckReadiness(ctx context.Context) error {
	if e.health == nil {
		return nil
	}
	return e.health.HealthCheck(ctx)
}

// BuildFrame runs the full chain for one region and target year and
// returns the frame carrying the panels opts.Kind selects.
func (e *Engine) BuildFrame(ctx context.Context, regionID string, year int, opts FrameOptions) (*render.Frame, error) {
	region, err := e.registry.Get(regionID)
	if err != nil {
		return nil, err
	}
	ds, err := e.loader.LoadBase(ctx, region.ID)
	if err != nil {
		return nil, err
	}
	origin, err := ds.AttachTarget(ctx, year, e.fetcher)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("target attached",
		"region", region.ID, "year", year, "origin", origin.String(), "last_day", ds.Meta.LastDay)

	return e.buildFromDataset(region, ds, opts)
}

// buildFromDataset finishes the chain on a store that already has its
// target attached. The batch runner uses it directly so one load serves
// a whole day sweep.
func (e *Engine) buildFromDataset(region regions.Region, ds *domain.Dataset, opts FrameOptions) (*render.Frame, error) {
	start := time.Now()

	day := opts.Day
	if day == 0 {
		day = ds.Meta.LastDay
	}
	truncated, err := ds.TruncateAfter(day)
	if err != nil {
		return nil, err
	}

	var daily, cum *render.Input
	if opts.Kind == render.KindDaily || opts.Kind == render.KindBoth {
		daily, err = e.panelInput(truncated, opts.Threshold)
		if err != nil {
			return nil, err
		}
	}
	if opts.Kind == render.KindCumMean || opts.Kind == render.KindBoth {
		cds, err := truncated.CumulativeMean()
		if err != nil {
			return nil, err
		}
		cum, err = e.panelInput(cds, opts.Threshold)
		if err != nil {
			return nil, err
		}
	}

	frame, err := render.Build(region, opts.Language, opts.Kind, opts.Center, daily, cum)
	if err != nil {
		return nil, err
	}

	e.metrics.FrameBuildDuration.Observe(time.Since(start).Seconds())
	e.metrics.FramesBuilt.WithLabelValues(region.ID, string(opts.Kind)).Inc()
	return frame, nil
}

// panelInput runs rank and classification over one store variant.
func (e *Engine) panelInput(ds *domain.Dataset, threshold float64) (*render.Input, error) {
	grid, err := domain.Rank(ds)
	if err != nil {
		return nil, err
	}
	summary, err := domain.ClassifyDay(ds, grid, ds.Meta.LastDay)
	if err != nil {
		return nil, err
	}
	exc, err := domain.ClassifyExceedance(ds, threshold)
	if err != nil {
		return nil, err
	}
	return &render.Input{Dataset: ds, Grid: grid, Summary: summary, Exceedance: exc}, nil
}
