package domain

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DaySummary describes the target year at one day-of-year: how far it sits
// from the historical median and where it ranks among all candidate years.
type DaySummary struct {
	Day     int     // 1-based day-of-year
	Anomaly float64 // target value minus historical median at Day
	Rank    int     // target's rank at Day, 1 = hottest
	Total   int     // candidate years with a defined value at Day
}

// Exceedance is the per-day threshold classification of the target year.
type Exceedance struct {
	Threshold float64
	Disabled  bool   // threshold outside [-1, 1]: no marking performed
	Mask      []bool // per day-of-year: target crossed the threshold
	Unseen    []bool // per day-of-year: target at or above the all-time archive maximum
	Matching  int    // days with Mask set
	Defined   int    // days with a defined target value
	Percent   float64
}

// ClassifyDay computes the last-day style summary for one day-of-year:
// the anomaly against the historical median of the base column and the
// target's (rank, total) pair from the grid.
//
// The grid must have been derived from the same store state; pass
// Meta.LastDay as day for the usual "how does the year stand today" read.
func ClassifyDay(d *Dataset, g *RankGrid, day int) (DaySummary, error) {
	if d.Target == nil {
		return DaySummary{}, fmt.Errorf("%w: no target year attached", ErrInvalidArgument)
	}
	if day < 1 || day > d.Days {
		return DaySummary{}, fmt.Errorf("%w: day-of-year %d outside [1, %d]", ErrInvalidArgument, day, d.Days)
	}

	tv := d.Target[day-1]
	if math.IsNaN(tv) {
		return DaySummary{}, fmt.Errorf("%w: target has no value at day %d", ErrMissingData, day)
	}
	col := definedColumn(d.Base, day-1, -1)
	if len(col) == 0 {
		return DaySummary{}, fmt.Errorf("%w: no archived values at day %d", ErrMissingData, day)
	}
	sort.Float64s(col)
	median := stat.Quantile(0.5, stat.LinInterp, col, nil)

	row, ok := g.YearIndex(d.Meta.Year)
	if !ok {
		return DaySummary{}, fmt.Errorf("%w: rank grid does not contain target year %d", ErrInvalidArgument, d.Meta.Year)
	}
	rank := g.At(row, day)
	if rank == 0 {
		return DaySummary{}, fmt.Errorf("%w: target year %d holds no rank at day %d", ErrMissingData, d.Meta.Year, day)
	}

	return DaySummary{
		Day:     day,
		Anomaly: tv - median,
		Rank:    rank,
		Total:   g.DefinedAt(day),
	}, nil
}

// ClassifyExceedance marks every day of the target year against a
// historical threshold. The comparison pool excludes the target year's own
// base row, so an archived year is never compared against itself.
//
// Threshold semantics:
//
//	 1          target >= pool maximum  (new heat record)
//	-1          target <= pool minimum  (new cold record)
//	 0          target >= pool minimum
//	 q in (0,1) target >= pool quantile q   (warmest (1-q) share)
//	 q in (-1,0) target <= pool quantile |q| (coldest |q| share)
//	 otherwise  classification disabled
//
// Whenever the threshold is in domain, days at or above the all-time
// archive maximum are additionally marked unseen. Any hit raises the
// store's RecordSeen/UnseenSeen annotations for the renderer.
func ClassifyExceedance(d *Dataset, threshold float64) (Exceedance, error) {
	if d.Target == nil {
		return Exceedance{}, fmt.Errorf("%w: no target year attached", ErrInvalidArgument)
	}
	if math.Abs(threshold) > 1 {
		return Exceedance{Threshold: threshold, Disabled: true}, nil
	}

	exclude := -1
	if idx, ok := d.YearIndex(d.Meta.Year); ok {
		exclude = idx
	}
	if exclude >= 0 && len(d.Base) == 1 {
		return Exceedance{}, fmt.Errorf("%w: no historical years to compare against for %d", ErrMissingData, d.Meta.Year)
	}

	allTimeMax := math.Inf(-1)
	for _, row := range d.Base {
		for _, v := range row {
			if !math.IsNaN(v) && v > allTimeMax {
				allTimeMax = v
			}
		}
	}

	exc := Exceedance{
		Threshold: threshold,
		Mask:      make([]bool, d.Days),
		Unseen:    make([]bool, d.Days),
	}
	for day := 1; day <= d.Days; day++ {
		tv := d.Target[day-1]
		if math.IsNaN(tv) {
			continue
		}
		exc.Defined++
		exc.Unseen[day-1] = tv >= allTimeMax

		pool := definedColumn(d.Base, day-1, exclude)
		if len(pool) == 0 {
			continue
		}
		sort.Float64s(pool)

		hit := false
		switch {
		case threshold == 1:
			hit = tv >= pool[len(pool)-1]
		case threshold == -1:
			hit = tv <= pool[0]
		case threshold == 0:
			hit = tv >= pool[0]
		case threshold > 0:
			hit = tv >= stat.Quantile(threshold, stat.LinInterp, pool, nil)
		default:
			hit = tv <= stat.Quantile(-threshold, stat.LinInterp, pool, nil)
		}
		if hit {
			exc.Mask[day-1] = true
			exc.Matching++
		}
	}
	if exc.Defined > 0 {
		exc.Percent = 100 * float64(exc.Matching) / float64(exc.Defined)
	}

	if exc.Matching > 0 {
		d.Annotations.RecordSeen = true
	}
	for _, u := range exc.Unseen {
		if u {
			d.Annotations.UnseenSeen = true
			break
		}
	}
	return exc, nil
}

// definedColumn collects the defined values of base column c, skipping the
// excluded row (pass -1 to keep all rows).
func definedColumn(base [][]float64, c, exclude int) []float64 {
	col := make([]float64, 0, len(base))
	for r, row := range base {
		if r == exclude {
			continue
		}
		if v := row[c]; !math.IsNaN(v) {
			col = append(col, v)
		}
	}
	return col
}
