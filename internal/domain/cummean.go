package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CumulativeMean returns a copy in which every base row and the target
// hold the running mean of days 1..d instead of raw daily values. A gap in
// the input poisons every later day of that series: the cumulative sum
// cannot legitimately average past an undefined value.
//
// Truncation state survives the transform (the target is re-masked past
// Meta.LastDay) and Region/Year are preserved. Applying the transform to a
// dataset that is already cumulative is rejected: a cumulative-of-cumulative
// series is meaningless.
func (d *Dataset) CumulativeMean() (*Dataset, error) {
	if d.Meta.CumMean {
		return nil, fmt.Errorf("%w: dataset already holds cumulative means", ErrInvalidArgument)
	}

	out := d.Clone()
	for _, row := range out.Base {
		runningMean(row)
	}
	if out.Target != nil {
		runningMean(out.Target)
		for i := out.Meta.LastDay; i < out.Days; i++ {
			out.Target[i] = math.NaN()
		}
	}
	out.Meta.CumMean = true
	return out, nil
}

// runningMean rewrites vals[d] to mean(vals[0..d]) in place. NaN input
// propagates to every later element via the cumulative sum.
func runningMean(vals []float64) {
	floats.CumSum(vals, vals)
	for i := range vals {
		vals[i] /= float64(i + 1)
	}
}
