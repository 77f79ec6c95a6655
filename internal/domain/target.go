package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// TargetOrigin reports how a target year entered the store.
type TargetOrigin int

const (
	// TargetInSample means the year is an archived base-grid row.
	TargetInSample TargetOrigin = iota
	// TargetOutOfSample means the year was fetched from the
	// near-real-time source and is not part of the archive.
	TargetOutOfSample
)

func (o TargetOrigin) String() string {
	switch o {
	case TargetInSample:
		return "in-sample"
	case TargetOutOfSample:
		return "out-of-sample"
	default:
		return fmt.Sprintf("TargetOrigin(%d)", int(o))
	}
}

// AttachTarget records the series for year into the store, either by
// copying the archived row (in-sample) or by fetching the partial current
// year (out-of-sample). It sets Meta.Year and Meta.LastDay: the full axis
// for archived years, the last day with a defined value for fetched ones.
//
// The archived row is checked first, so the fetcher is only consulted for
// years the archive does not know.
func (d *Dataset) AttachTarget(ctx context.Context, year int, fetcher PartialYearFetcher) (TargetOrigin, error) {
	if d.Meta.CumMean {
		return 0, fmt.Errorf("%w: cannot attach a target to a cumulative-mean dataset", ErrInvalidArgument)
	}

	if idx, ok := d.YearIndex(year); ok {
		d.Target = append([]float64(nil), d.Base[idx]...)
		d.Meta.Year = year
		d.Meta.LastDay = d.Days
		return TargetInSample, nil
	}

	if fetcher == nil {
		return 0, fmt.Errorf("%w: year %d is not archived and no fetcher is configured", ErrDataUnavailable, year)
	}
	vals, err := fetcher.FetchPartialYear(ctx, d.Meta.Region)
	if err != nil {
		if errors.Is(err, ErrInvalidRegion) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: fetch current year for %q: %v", ErrDataUnavailable, d.Meta.Region, err)
	}
	if len(vals) > d.Days {
		return 0, fmt.Errorf("%w: fetched series has %d days, axis has %d", ErrInvalidArgument, len(vals), d.Days)
	}

	// A mid-year series is shorter than the axis; pad so it lines up.
	target := make([]float64, d.Days)
	copy(target, vals)
	for i := len(vals); i < d.Days; i++ {
		target[i] = math.NaN()
	}

	last := 0
	for i, v := range target {
		if !math.IsNaN(v) {
			last = i + 1
		}
	}
	if last == 0 {
		return 0, fmt.Errorf("%w: current-year series for %q has no defined values", ErrDataUnavailable, d.Meta.Region)
	}

	d.Target = target
	d.Meta.Year = year
	d.Meta.LastDay = last
	return TargetOutOfSample, nil
}
