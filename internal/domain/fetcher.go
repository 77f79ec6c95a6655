package domain

import "context"

// PartialYearFetcher supplies the daily-mean series of the current,
// not-yet-archived year from a near-real-time source.
type PartialYearFetcher interface {
	// FetchPartialYear returns the series on the archive's day-of-year
	// axis. Days without an observation yet hold NaN; the series may be
	// shorter than a full year, in which case the tail counts as
	// undefined.
	FetchPartialYear(ctx context.Context, region string) ([]float64, error)
}
