package magick

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake command runner ---

type recordedRun struct {
	name string
	args []string
}

func testCompositor(stepsize, delay, resize int, err error) (*Compositor, *[]recordedRun) {
	var runs []recordedRun
	c := New("convert", stepsize, delay, resize, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.run = func(_ context.Context, name string, args ...string) error {
		runs = append(runs, recordedRun{name: name, args: args})
		return err
	}
	return c, &runs
}

// writeFrames creates n empty frame files named tas_daily_austria_2026_NNN.png
// under {root}/austria/2026/daily and returns the last one.
func writeFrames(t *testing.T, root string, n int) string {
	t.Helper()
	dir := filepath.Join(root, "austria", "2026", "daily")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var last string
	for i := 1; i <= n; i++ {
		last = filepath.Join(dir, fmt.Sprintf("tas_daily_austria_2026_%03d.png", i))
		require.NoError(t, os.WriteFile(last, []byte("png"), 0o644))
	}
	return last
}

func TestCombine_AllFrames(t *testing.T) {
	root := t.TempDir()
	last := writeFrames(t, root, 5)
	c, runs := testCompositor(0, 0, 0, nil)

	out, err := c.Combine(context.Background(), last, false)
	require.NoError(t, err)

	want := filepath.Join(root, "austria", "2026",
		"tas_daily_austria_2026_005_stepsize-1_delay-40_size-640.gif")
	assert.Equal(t, want, out, "gif lands in the parent of the frame directory")

	require.Len(t, *runs, 1)
	run := (*runs)[0]
	assert.Equal(t, "convert", run.name)
	assert.Equal(t, []string{"-delay", "40", "-resize", "640"}, run.args[:4])
	assert.Len(t, run.args, 4+5+1, "all five frames plus the output path")
	assert.Equal(t, want, run.args[len(run.args)-1])
}

func TestCombine_Stepsize(t *testing.T) {
	root := t.TempDir()
	last := writeFrames(t, root, 5)
	c, runs := testCompositor(2, 10, 320, nil)

	out, err := c.Combine(context.Background(), last, false)
	require.NoError(t, err)
	assert.Contains(t, out, "stepsize-2_delay-10_size-320.gif")

	require.Len(t, *runs, 1)
	run := (*runs)[0]
	// Frames 1, 3, 5 of 5.
	assert.Len(t, run.args, 4+3+1)
	assert.Contains(t, run.args[4], "tas_daily_austria_2026_001.png")
	assert.Contains(t, run.args[5], "tas_daily_austria_2026_003.png")
	assert.Contains(t, run.args[6], "tas_daily_austria_2026_005.png")
}

func TestCombine_AutoStepsizeCapsAtHundredSteps(t *testing.T) {
	root := t.TempDir()
	last := writeFrames(t, root, 250)
	c, runs := testCompositor(0, 0, 0, nil)

	out, err := c.Combine(context.Background(), last, false)
	require.NoError(t, err)
	assert.Contains(t, out, "stepsize-3_")

	require.Len(t, *runs, 1)
	// Every third frame of 250: indexes 0, 3, ..., 249.
	assert.Len(t, (*runs)[0].args, 4+84+1)
}

func TestCombine_IgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	last := writeFrames(t, root, 3)
	stray := filepath.Join(filepath.Dir(last), "tas_daily_austria_2026_001.json")
	require.NoError(t, os.WriteFile(stray, []byte("{}"), 0o644))
	c, runs := testCompositor(0, 0, 0, nil)

	_, err := c.Combine(context.Background(), last, false)
	require.NoError(t, err)

	require.Len(t, *runs, 1)
	for _, arg := range (*runs)[0].args {
		assert.NotContains(t, arg, ".json")
	}
}

func TestCombine_SkipsExistingGIF(t *testing.T) {
	root := t.TempDir()
	last := writeFrames(t, root, 3)
	c, runs := testCompositor(0, 0, 0, nil)

	out1, err := c.Combine(context.Background(), last, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(out1, []byte("gif"), 0o644))

	out2, err := c.Combine(context.Background(), last, false)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
	assert.Len(t, *runs, 1, "second run must not invoke convert")
}

func TestCombine_OverwriteReplacesGIF(t *testing.T) {
	root := t.TempDir()
	last := writeFrames(t, root, 3)
	c, runs := testCompositor(0, 0, 0, nil)

	out1, err := c.Combine(context.Background(), last, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(out1, []byte("gif"), 0o644))

	_, err = c.Combine(context.Background(), last, true)
	require.NoError(t, err)
	assert.Len(t, *runs, 2)
}

func TestCombine_NoFramesIsNoop(t *testing.T) {
	root := t.TempDir()
	c, runs := testCompositor(0, 0, 0, nil)

	out, err := c.Combine(context.Background(), filepath.Join(root, "missing", "tas_daily_x_2026_001.png"), false)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, *runs)
}

func TestCombine_ConvertFailure(t *testing.T) {
	root := t.TempDir()
	last := writeFrames(t, root, 2)
	c, _ := testCompositor(0, 0, 0, errors.New("convert: not authorized"))

	_, err := c.Combine(context.Background(), last, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compose gif")
	assert.Contains(t, err.Error(), "not authorized")
}
