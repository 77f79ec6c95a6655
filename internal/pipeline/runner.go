package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/observability"
	"github.com/foehnwatch/tas-tracker/internal/render"
)

// Compositor combines a written frame sequence into an animation.
type Compositor interface {
	// Combine derives the sequence from one member file and returns the
	// path of the composed animation, or "" when there was nothing to
	// compose.
	Combine(ctx context.Context, frameFile string, overwrite bool) (string, error)
}

// EventPublisher announces a completed frame set to downstream
// consumers.
type EventPublisher interface {
	PublishFrameSet(ctx context.Context, event FrameSetEvent) error
}

// FrameSetEvent is the message published after a region's frame
// sequence has been produced.
type FrameSetEvent struct {
	Region      string    `json:"region"`
	Year        int       `json:"year"`
	Kind        string    `json:"kind"`
	LastDay     int       `json:"last_day"`
	FrameCount  int       `json:"frame_count"`
	FramesDir   string    `json:"frames_dir"`
	GIFPath     string    `json:"gif_path,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// loadAttempts bounds the archive-load retries per region.
const loadAttempts = 3

// Runner sweeps regions and days, writing one frame document per day,
// then hands the sequence to the compositor and announces it.
type Runner struct {
	engine     *Engine
	compositor Compositor
	publisher  EventPublisher
	outDir     string
	opts       FrameOptions
	overwrite  bool
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewRunner creates a Runner producing frames of one kind under outDir.
// compositor and publisher may be nil to disable animation and event
// delivery.
func NewRunner(engine *Engine, compositor Compositor, publisher EventPublisher, outDir string, opts FrameOptions, overwrite bool, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		engine:     engine,
		compositor: compositor,
		publisher:  publisher,
		outDir:     outDir,
		opts:       opts,
		overwrite:  overwrite,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run produces the frame sequences for the given regions and target
// year. A failing region is logged and the run continues with the next
// one; Run fails only when the context is cancelled or every region
// failed.
func (r *Runner) Run(ctx context.Context, regionIDs []string, year int) error {
	r.metrics.BatchActive.Set(1)
	defer r.metrics.BatchActive.Set(0)

	r.logger.Info("batch run started",
		"regions", len(regionIDs), "year", year, "kind", string(r.opts.Kind))

	failed := 0
	for _, id := range regionIDs {
		if err := r.runRegion(ctx, id, year); err != nil {
			if ctx.Err() != nil {
				r.metrics.BatchRuns.WithLabelValues("error").Inc()
				return ctx.Err()
			}
			r.logger.Error("region failed", "region", id, "year", year, "error", err)
			failed++
		}
	}

	switch {
	case failed == 0:
		r.metrics.BatchRuns.WithLabelValues("success").Inc()
	case failed < len(regionIDs):
		r.metrics.BatchRuns.WithLabelValues("partial").Inc()
	default:
		r.metrics.BatchRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("all %d regions failed", failed)
	}

	r.logger.Info("batch run finished", "regions", len(regionIDs), "failed", failed)
	return nil
}

// runRegion loads the region once, attaches the target and writes one
// frame per day up to the target's last day. Days the target does not
// define are skipped, not fatal: a mid-year gap must not sink the rest
// of the sequence.
func (r *Runner) runRegion(ctx context.Context, regionID string, year int) error {
	region, err := r.engine.registry.Get(regionID)
	if err != nil {
		return err
	}

	ds, err := r.loadWithRetry(ctx, region.ID)
	if err != nil {
		return err
	}
	if _, err := ds.AttachTarget(ctx, year, r.engine.fetcher); err != nil {
		return err
	}
	lastDay := ds.Meta.LastDay

	dir := filepath.Join(r.outDir, region.ID, strconv.Itoa(year), string(r.opts.Kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create frame directory %s: %w", dir, err)
	}

	frames, written := 0, 0
	lastFile := ""
	for day := 1; day <= lastDay; day++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		path := filepath.Join(dir, frameFileName(r.opts.Kind, region.ID, year, day))
		if !r.overwrite {
			if _, err := os.Stat(path); err == nil {
				r.metrics.FramesSkipped.Inc()
				frames++
				lastFile = path
				continue
			}
		}

		opts := r.opts
		opts.Day = day
		frame, err := r.engine.buildFromDataset(region, ds, opts)
		if err != nil {
			if errors.Is(err, domain.ErrMissingData) {
				r.logger.Warn("day not defined, skipping frame",
					"region", region.ID, "year", year, "day", day)
				continue
			}
			return fmt.Errorf("build frame for day %d: %w", day, err)
		}
		if err := writeFrame(path, frame); err != nil {
			return err
		}
		frames++
		written++
		lastFile = path
	}

	gifPath := r.compose(ctx, region.ID, lastFile)

	if r.publisher != nil && frames > 0 {
		event := FrameSetEvent{
			Region:      region.ID,
			Year:        year,
			Kind:        string(r.opts.Kind),
			LastDay:     lastDay,
			FrameCount:  frames,
			FramesDir:   dir,
			GIFPath:     gifPath,
			GeneratedAt: clock.Now().UTC(),
		}
		if err := r.publisher.PublishFrameSet(ctx, event); err != nil {
			r.logger.Warn("publish frame-set event failed", "region", region.ID, "error", err)
		} else {
			r.metrics.EventsPublished.Inc()
		}
	}

	r.logger.Info("region done",
		"region", region.ID, "year", year, "last_day", lastDay,
		"frames", frames, "written", written, "gif", gifPath)
	return nil
}

// compose combines the rendered images sitting beside the written frame
// documents. The renderer is a separate process that drops a .png twin
// for each .json frame; until it has run there is nothing to combine
// and composition is silently skipped. Failures are logged, never
// fatal.
func (r *Runner) compose(ctx context.Context, regionID, lastFile string) string {
	if r.compositor == nil || lastFile == "" {
		return ""
	}
	img := imageTwin(lastFile)
	if img == "" {
		r.logger.Debug("no rendered images beside frames, skipping animation", "region", regionID)
		return ""
	}
	gifPath, err := r.compositor.Combine(ctx, img, r.overwrite)
	if err != nil {
		r.logger.Warn("compose animation failed", "region", regionID, "error", err)
		return ""
	}
	if gifPath != "" {
		r.metrics.GIFsComposed.Inc()
	}
	return gifPath
}

// loadWithRetry loads the base grid, retrying transient failures with a
// doubling backoff. Unknown regions fail immediately.
func (r *Runner) loadWithRetry(ctx context.Context, regionID string) (*domain.Dataset, error) {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		ds, err := r.engine.loader.LoadBase(ctx, regionID)
		if err == nil {
			return ds, nil
		}
		if errors.Is(err, domain.ErrInvalidRegion) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		r.logger.Warn("load base failed", "region", regionID, "attempt", attempt, "error", err)
		if attempt < loadAttempts {
			if !sleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}
	}
	return nil, fmt.Errorf("load base for %q after %d attempts: %w", regionID, loadAttempts, lastErr)
}

// frameFileName follows the archive layout
// tas_{kind}_{region}_{year}_{day}.json with the day zero-padded so
// lexical and numeric order coincide.
func frameFileName(kind render.Kind, region string, year, day int) string {
	return fmt.Sprintf("tas_%s_%s_%d_%03d.json", kind, region, year, day)
}

// imageTwin returns the rendered image sitting beside a frame document,
// or "" when the renderer has not produced one yet.
func imageTwin(frameFile string) string {
	img := strings.TrimSuffix(frameFile, filepath.Ext(frameFile)) + ".png"
	if _, err := os.Stat(img); err != nil {
		return ""
	}
	return img
}

func writeFrame(path string, frame *render.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
