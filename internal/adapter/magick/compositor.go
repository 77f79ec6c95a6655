// Package magick assembles a directory of per-day frame images into an
// animated GIF by shelling out to ImageMagick's convert.
package magick

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

type runFunc func(ctx context.Context, name string, args ...string) error

// Compositor shells out to the configured convert binary.
// It implements pipeline.Compositor.
type Compositor struct {
	bin      string
	stepsize int // 0 selects automatically so the animation has at most 100 steps
	delay    int
	resize   int
	run      runFunc
	logger   *slog.Logger
}

// New creates a compositor for the given convert binary. A stepsize of
// zero picks every n-th frame so the animation stays under 100 steps;
// delay and resize fall back to 40 and 640 when not positive.
func New(bin string, stepsize, delay, resize int, logger *slog.Logger) *Compositor {
	if delay <= 0 {
		delay = 40
	}
	if resize <= 0 {
		resize = 640
	}
	return &Compositor{
		bin:      bin,
		stepsize: stepsize,
		delay:    delay,
		resize:   resize,
		run:      runConvert,
		logger:   logger,
	}
}

func runConvert(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return err
	}
	return nil
}

// Combine collects every sibling of frameFile with the same extension,
// thins the sequence by the stepsize, and writes an animated GIF into
// the parent of the frame directory. The GIF name extends frameFile's
// name with the resolved stepsize, delay, and size. Returns the GIF
// path, or "" when there was nothing to combine.
//
// An existing GIF is left untouched unless overwrite is set.
func (c *Compositor) Combine(ctx context.Context, frameFile string, overwrite bool) (string, error) {
	dir := filepath.Dir(frameFile)
	ext := filepath.Ext(frameFile)
	base := strings.TrimSuffix(filepath.Base(frameFile), ext)

	files, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	if err != nil {
		return "", fmt.Errorf("glob frame files: %w", err)
	}
	if len(files) == 0 {
		c.logger.Debug("no frame files to combine", "dir", dir, "ext", ext)
		return "", nil
	}

	stepsize := c.stepsize
	if stepsize <= 0 {
		stepsize = len(files)/100 + 1
	}

	picked := files[:0:0]
	for i := 0; i < len(files); i += stepsize {
		picked = append(picked, files[i])
	}

	out := filepath.Join(filepath.Dir(dir), fmt.Sprintf(
		"%s_stepsize-%d_delay-%d_size-%d.gif",
		base, stepsize, c.delay, c.resize,
	))

	if !overwrite {
		if _, err := os.Stat(out); err == nil {
			c.logger.Debug("gif already exists", "path", out)
			return out, nil
		}
	}

	args := []string{
		"-delay", strconv.Itoa(c.delay),
		"-resize", strconv.Itoa(c.resize),
	}
	args = append(args, picked...)
	args = append(args, out)

	if err := c.run(ctx, c.bin, args...); err != nil {
		return "", fmt.Errorf("compose gif %s: %w", filepath.Base(out), err)
	}

	c.logger.Info("gif composed",
		"path", out,
		"frames", len(picked),
		"stepsize", stepsize,
	)

	return out, nil
}
