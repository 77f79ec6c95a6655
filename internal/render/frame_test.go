package render_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/regions"
	"github.com/foehnwatch/tas-tracker/internal/render"
)

var austria = regions.Region{
	ID:    "austria",
	Names: regions.Names{German: "in Österreich", English: "in Austria"},
}

type fixedFetcher struct{ values []float64 }

func (f fixedFetcher) FetchPartialYear(context.Context, string) ([]float64, error) {
	return f.values, nil
}

// newInput runs the full analysis chain over a small grid and returns the
// panel input for the requested mode.
func newInput(t *testing.T, cummean bool, target []float64) *render.Input {
	t.Helper()

	ds, err := domain.NewDataset("austria", []int{2001, 2002}, [][]float64{
		{10, 11, 12},
		{20, 21, 22},
	})
	require.NoError(t, err)
	_, err = ds.AttachTarget(context.Background(), 2026, fixedFetcher{values: target})
	require.NoError(t, err)
	if cummean {
		ds, err = ds.CumulativeMean()
		require.NoError(t, err)
	}

	grid, err := domain.Rank(ds)
	require.NoError(t, err)
	sum, err := domain.ClassifyDay(ds, grid, ds.Meta.LastDay)
	require.NoError(t, err)
	exc, err := domain.ClassifyExceedance(ds, 1)
	require.NoError(t, err)

	return &render.Input{Dataset: ds, Grid: grid, Summary: sum, Exceedance: exc}
}

func TestBuild_DailyFrame(t *testing.T) {
	now := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)
	render.SetClock(clockwork.NewFakeClockAt(now))
	defer render.SetClock(nil)

	in := newInput(t, false, []float64{30, 31, math.NaN()})

	frame, err := render.Build(austria, regions.English, render.KindDaily, render.CenterMedian, in, nil)
	require.NoError(t, err)

	assert.Equal(t, "austria", frame.Region)
	assert.Equal(t, "in Austria", frame.RegionLabel)
	assert.Equal(t, 2026, frame.Year)
	assert.Equal(t, 2, frame.LastDay)
	assert.Equal(t, 3, frame.AxisDays)
	assert.Equal(t, render.KindDaily, frame.Kind)
	assert.Equal(t, "Temperature (°C)", frame.YLabel)
	assert.Equal(t, now, frame.GeneratedAt)
	assert.Nil(t, frame.CumMean)

	require.NotNil(t, frame.Daily)
	p := frame.Daily
	assert.Equal(t, "Daily mean temperature in Austria to 02.01.2026", p.Title)
	assert.False(t, p.CumMean)

	require.Len(t, p.Bands, 5)
	widest := p.Bands[0]
	assert.Equal(t, 0.0, widest.Lower)
	assert.Equal(t, 1.0, widest.Upper)
	assert.Equal(t, render.Value(10), widest.Low[0], "band 0 low is the minimum")
	assert.Equal(t, render.Value(20), widest.High[0], "band 0 high is the maximum")

	assert.Equal(t, render.Value(15), p.CenterLine[0], "median of 10 and 20")
	assert.Equal(t, render.Value(30), p.Target[0])
	assert.True(t, math.IsNaN(float64(p.Target[2])))
}

func TestBuild_TargetRanks(t *testing.T) {
	in := newInput(t, false, []float64{30, 15, math.NaN()})

	frame, err := render.Build(austria, regions.English, render.KindDaily, render.CenterMedian, in, nil)
	require.NoError(t, err)

	// Day 1: 30 beats 10 and 20. Day 2: 15 sits between 11 and 21.
	// Day 3: undefined.
	require.NotNil(t, frame.Daily)
	assert.Equal(t, []int{1, 2, 0}, frame.Daily.TargetRanks)
}

func TestBuild_BothPanels(t *testing.T) {
	daily := newInput(t, false, []float64{30, 31, math.NaN()})
	cum := newInput(t, true, []float64{30, 31, math.NaN()})

	frame, err := render.Build(austria, regions.German, render.KindBoth, render.CenterMedian, daily, cum)
	require.NoError(t, err)

	require.NotNil(t, frame.Daily)
	require.NotNil(t, frame.CumMean)
	assert.Equal(t, "Tagesmitteltemperatur in Österreich bis 02.01.2026", frame.Daily.Title)
	assert.Equal(t, "Kumulative Mitteltemperatur in Österreich bis 02.01.2026", frame.CumMean.Title)
	assert.True(t, frame.CumMean.CumMean)
	assert.Equal(t, "Temperatur (°C)", frame.YLabel)
	assert.True(t, frame.RecordSeen, "target beats all archived years")
	assert.True(t, frame.UnseenSeen)
}

func TestBuild_KindValidation(t *testing.T) {
	daily := newInput(t, false, []float64{30, 31, math.NaN()})

	_, err := render.Build(austria, regions.English, render.KindBoth, render.CenterMedian, daily, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = render.Build(austria, regions.English, render.KindCumMean, render.CenterMedian, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = render.Build(austria, regions.English, render.Kind("weekly"), render.CenterMedian, daily, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBuild_PanelModeMismatch(t *testing.T) {
	daily := newInput(t, false, []float64{30, 31, math.NaN()})

	// A raw-daily dataset cannot feed the cumulative panel.
	_, err := render.Build(austria, regions.English, render.KindCumMean, render.CenterMedian, nil, daily)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBuild_MeanCenter(t *testing.T) {
	in := newInput(t, false, []float64{30, 31, math.NaN()})

	frame, err := render.Build(austria, regions.English, render.KindDaily, render.CenterMean, in, nil)
	require.NoError(t, err)
	assert.Equal(t, render.Value(15), frame.Daily.CenterLine[0], "mean of 10 and 20")
	assert.Equal(t, render.CenterMean, frame.Daily.Center)
}

func TestBuild_Ticks(t *testing.T) {
	in := newInput(t, false, []float64{30, 31, math.NaN()})

	german, err := render.Build(austria, regions.German, render.KindDaily, render.CenterMedian, in, nil)
	require.NoError(t, err)
	english, err := render.Build(austria, regions.English, render.KindDaily, render.CenterMedian, in, nil)
	require.NoError(t, err)

	require.Len(t, german.Ticks, 7)
	assert.Equal(t, render.Tick{Day: 1, Label: "1. Jän."}, german.Ticks[0])
	assert.Equal(t, render.Tick{Day: 365, Label: "31. Dez."}, german.Ticks[6])
	assert.Equal(t, render.Tick{Day: 60, Label: "1. Mar."}, english.Ticks[1])
}

func TestBuild_AnnotationFlip(t *testing.T) {
	in := newInput(t, false, []float64{30, 31, math.NaN()})

	in.Summary.Day = 321
	frame, err := render.Build(austria, regions.English, render.KindDaily, render.CenterMedian, in, nil)
	require.NoError(t, err)
	assert.False(t, frame.Daily.Summary.Flip)

	in.Summary.Day = 322
	frame, err = render.Build(austria, regions.English, render.KindDaily, render.CenterMedian, in, nil)
	require.NoError(t, err)
	assert.True(t, frame.Daily.Summary.Flip)
}

func TestBuild_DisabledExceedanceOmitted(t *testing.T) {
	in := newInput(t, false, []float64{30, 31, math.NaN()})
	exc, err := domain.ClassifyExceedance(in.Dataset, 2)
	require.NoError(t, err)
	in.Exceedance = exc

	frame, err := render.Build(austria, regions.English, render.KindDaily, render.CenterMedian, in, nil)
	require.NoError(t, err)
	assert.Nil(t, frame.Daily.Exceedance)
	assert.Nil(t, frame.Daily.Unseen)
}

func TestParseKind(t *testing.T) {
	kind, err := render.ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, render.KindBoth, kind)

	kind, err = render.ParseKind("daily")
	require.NoError(t, err)
	assert.Equal(t, render.KindDaily, kind)

	_, err = render.ParseKind("hourly")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestParseCenter(t *testing.T) {
	center, err := render.ParseCenter(false, false)
	require.NoError(t, err)
	assert.Equal(t, render.CenterMedian, center, "median is the default")

	center, err = render.ParseCenter(true, false)
	require.NoError(t, err)
	assert.Equal(t, render.CenterMean, center)

	_, err = render.ParseCenter(true, true)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
