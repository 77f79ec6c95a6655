// Package domain implements the running-year temperature comparison
// engine: a store of archived daily-mean series, target-year attachment,
// truncation, cumulative-mean transformation, per-day ranking against all
// archived years, and record/exceedance classification.
//
// # Day-of-year axis
//
// Every series is indexed by day-of-year 1..365. The leap day (366) is
// dropped uniformly from archives and fetched series, so February 29
// never exists on the axis; callers naming day 366 (e.g. "end of a leap
// year") are clamped to 365. Undefined values are NaN throughout.
//
// # Target years
//
// A target year is either in-sample (already an archived row, sliced out
// of the base grid) or out-of-sample (the live year, fetched from a
// near-real-time source and appended transiently for ranking). Attachment
// records Year and LastDay into the store's metadata: the full axis for
// archived years, the last observed day for fetched ones.
//
// # Ranking
//
// Each day-of-year column is ranked independently across years, rank 1 =
// highest value. The sort is stable with exact float64 comparison:
// equal values keep their original row order, so the earlier year takes
// the better rank, and a rerun reproduces the grid byte for byte.
// Undefined cells hold rank 0 and never displace a defined value.
//
// # Cumulative mode
//
// CumulativeMean rewrites every series to the running mean of days 1..d.
// The CumMean flag and LastDay travel together through every transform;
// once the flag is set, downstream consumers must read values as running
// means, and a second application is rejected.
//
// # Classification
//
// ClassifyDay answers "how does the target stand at this day": anomaly
// against the historical median plus the (rank, total) pair.
// ClassifyExceedance marks every day against a quantile/record threshold,
// always excluding the target year's own archived row from the comparison
// pool, and separately marks days above the all-time archive maximum as
// unseen.
//
// # Error kinds
//
// Failures wrap one of ErrInvalidArgument, ErrMissingData,
// ErrDataUnavailable or ErrInvalidRegion; callers branch with errors.Is.
package domain
