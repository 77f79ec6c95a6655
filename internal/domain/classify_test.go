package domain_test

import (
	"context"
	"testing"

	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDay(t *testing.T) {
	ds := mustDataset(t, "austria", []int{2001, 2002, 2003}, [][]float64{
		{1, 7},
		{3, 8},
		{5, 9},
	})
	attachInSample(t, ds, 2003)
	g, err := domain.Rank(ds)
	require.NoError(t, err)

	sum, err := domain.ClassifyDay(ds, g, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Day)
	assert.InDelta(t, 2.0, sum.Anomaly, 1e-12, "5 minus the median 3")
	assert.Equal(t, 1, sum.Rank)
	assert.Equal(t, 3, sum.Total)
}

func TestClassifyDay_Errors(t *testing.T) {
	ds := mustDataset(t, "austria", []int{2001, 2002}, [][]float64{
		{1, nan},
		{2, nan},
	})
	attachInSample(t, ds, 2002)
	truncated, err := ds.TruncateAfter(1)
	require.NoError(t, err)
	g, err := domain.Rank(truncated)
	require.NoError(t, err)

	t.Run("day out of range", func(t *testing.T) {
		_, err := domain.ClassifyDay(truncated, g, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		_, err = domain.ClassifyDay(truncated, g, 3)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("target undefined at day", func(t *testing.T) {
		_, err := domain.ClassifyDay(truncated, g, 2)
		assert.ErrorIs(t, err, domain.ErrMissingData)
	})

	t.Run("no target attached", func(t *testing.T) {
		bare := mustDataset(t, "austria", []int{2001}, [][]float64{{1}})
		_, err := domain.ClassifyDay(bare, g, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("column all undefined", func(t *testing.T) {
		gaps := mustDataset(t, "austria", []int{2001, 2002}, [][]float64{
			{nan, 1},
			{nan, 2},
		})
		fetcher := &fakeFetcher{values: []float64{4, 5}}
		_, err := gaps.AttachTarget(context.Background(), 2003, fetcher)
		require.NoError(t, err)
		gg, err := domain.Rank(gaps)
		require.NoError(t, err)

		_, err = domain.ClassifyDay(gaps, gg, 1)
		assert.ErrorIs(t, err, domain.ErrMissingData)
	})
}

func TestClassifyExceedance_Branches(t *testing.T) {
	// Five archived years at one day; the out-of-sample target varies.
	base := [][]float64{{10}, {12}, {14}, {16}, {18}}
	years := []int{2001, 2002, 2003, 2004, 2005}

	cases := []struct {
		name      string
		target    float64
		threshold float64
		want      bool
	}{
		{name: "heat record hit", target: 18, threshold: 1, want: true},
		{name: "heat record miss", target: 17.9, threshold: 1, want: false},
		{name: "cold record hit", target: 10, threshold: -1, want: true},
		{name: "cold record miss", target: 10.1, threshold: -1, want: false},
		{name: "above minimum", target: 10, threshold: 0, want: true},
		{name: "below minimum", target: 9.5, threshold: 0, want: false},
		{name: "median boundary hit", target: 14, threshold: 0.5, want: true},
		{name: "below median", target: 13.9, threshold: 0.5, want: false},
		{name: "coldest half hit", target: 14, threshold: -0.5, want: true},
		{name: "coldest half miss", target: 14.1, threshold: -0.5, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := mustDataset(t, "austria", years, base)
			fetcher := &fakeFetcher{values: []float64{tc.target}}
			_, err := ds.AttachTarget(context.Background(), 2026, fetcher)
			require.NoError(t, err)

			exc, err := domain.ClassifyExceedance(ds, tc.threshold)
			require.NoError(t, err)

			assert.False(t, exc.Disabled)
			assert.Equal(t, 1, exc.Defined)
			require.Len(t, exc.Mask, 1)
			assert.Equal(t, tc.want, exc.Mask[0])
		})
	}
}

func TestClassifyExceedance_Disabled(t *testing.T) {
	ds := mustDataset(t, "austria", []int{2001, 2002}, [][]float64{{1}, {2}})
	attachInSample(t, ds, 2002)

	for _, threshold := range []float64{1.5, -2, 99} {
		exc, err := domain.ClassifyExceedance(ds, threshold)
		require.NoError(t, err)
		assert.True(t, exc.Disabled)
		assert.Nil(t, exc.Mask)
		assert.Nil(t, exc.Unseen)
	}
	assert.False(t, ds.Annotations.RecordSeen)
}

func TestClassifyExceedance_SelfExclusion(t *testing.T) {
	t.Run("record against the other years", func(t *testing.T) {
		ds := mustDataset(t, "austria", []int{2001, 2002}, [][]float64{{10}, {20}})
		attachInSample(t, ds, 2002)

		exc, err := domain.ClassifyExceedance(ds, 1)
		require.NoError(t, err)
		assert.True(t, exc.Mask[0], "20 beats every other year")
	})

	t.Run("own value does not feed the pool", func(t *testing.T) {
		// Median of the others {10, 20} is 15; including the target's own
		// 14 would drag the median down to 14 and flip the outcome.
		ds := mustDataset(t, "austria", []int{2001, 2002, 2003}, [][]float64{{10}, {14}, {20}})
		attachInSample(t, ds, 2002)

		exc, err := domain.ClassifyExceedance(ds, 0.5)
		require.NoError(t, err)
		assert.False(t, exc.Mask[0])
	})

	t.Run("single archived year leaves no pool", func(t *testing.T) {
		ds := mustDataset(t, "austria", []int{2001}, [][]float64{{10}})
		attachInSample(t, ds, 2001)

		_, err := domain.ClassifyExceedance(ds, 1)
		assert.ErrorIs(t, err, domain.ErrMissingData)
	})
}

func TestClassifyExceedance_UnseenAndSummary(t *testing.T) {
	ds := mustDataset(t, "austria", []int{2001, 2002}, [][]float64{
		{10, 11, 12, 13},
		{20, 21, 22, 23},
	})
	// Day 1 beats the all-time maximum (23), day 2 beats its column only,
	// day 3 beats nothing, day 4 is undefined.
	fetcher := &fakeFetcher{values: []float64{30, 22, 5, nan}}
	_, err := ds.AttachTarget(context.Background(), 2026, fetcher)
	require.NoError(t, err)

	exc, err := domain.ClassifyExceedance(ds, 1)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, false, false}, exc.Mask)
	assert.Equal(t, []bool{true, false, false, false}, exc.Unseen)
	assert.Equal(t, 2, exc.Matching)
	assert.Equal(t, 3, exc.Defined)
	assert.InDelta(t, 200.0/3, exc.Percent, 1e-9)

	assert.True(t, ds.Annotations.RecordSeen)
	assert.True(t, ds.Annotations.UnseenSeen)
}

func TestClassifyExceedance_AnnotationsStayDown(t *testing.T) {
	ds := mustDataset(t, "austria", []int{2001, 2002}, [][]float64{{10, 20}, {12, 22}})
	fetcher := &fakeFetcher{values: []float64{5, 6}}
	_, err := ds.AttachTarget(context.Background(), 2026, fetcher)
	require.NoError(t, err)

	exc, err := domain.ClassifyExceedance(ds, 1)
	require.NoError(t, err)

	assert.Zero(t, exc.Matching)
	assert.False(t, ds.Annotations.RecordSeen)
	assert.False(t, ds.Annotations.UnseenSeen)
}

func TestClassifyExceedance_Repeatable(t *testing.T) {
	ds := mustDataset(t, "austria", []int{2001, 2002, 2003}, [][]float64{
		{10, 11},
		{14, 15},
		{18, 19},
	})
	fetcher := &fakeFetcher{values: []float64{17, 12}}
	_, err := ds.AttachTarget(context.Background(), 2026, fetcher)
	require.NoError(t, err)

	first, err := domain.ClassifyExceedance(ds, 0.5)
	require.NoError(t, err)
	second, err := domain.ClassifyExceedance(ds, 0.5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestYearToDateScenario walks the whole chain for a year that exceeds all
// of history: 21 archived years evenly spaced 10..30 at one day, live year
// at 31.
func TestYearToDateScenario(t *testing.T) {
	years := make([]int, 21)
	base := make([][]float64, 21)
	for i := range years {
		years[i] = 2000 + i
		base[i] = []float64{10 + float64(i)}
	}
	ds := mustDataset(t, "global", years, base)

	fetcher := &fakeFetcher{values: []float64{31}}
	origin, err := ds.AttachTarget(context.Background(), 2021, fetcher)
	require.NoError(t, err)
	require.Equal(t, domain.TargetOutOfSample, origin)

	g, err := domain.Rank(ds)
	require.NoError(t, err)
	require.Len(t, g.Years, 22)

	sum, err := domain.ClassifyDay(ds, g, ds.Meta.LastDay)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Rank, "hotter than all 21 archived years")
	assert.Equal(t, 22, sum.Total)
	assert.InDelta(t, 11.0, sum.Anomaly, 1e-12, "31 minus the median 20")

	exc, err := domain.ClassifyExceedance(ds, 1)
	require.NoError(t, err)
	assert.True(t, exc.Mask[0], "new heat record")
	assert.True(t, exc.Unseen[0], "beyond anything archived")
	assert.True(t, ds.Annotations.RecordSeen)
	assert.True(t, ds.Annotations.UnseenSeen)
}
