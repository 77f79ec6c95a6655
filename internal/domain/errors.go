package domain

import "errors"

// Error kinds surfaced by the engine. Callers match them with errors.Is;
// the HTTP adapter maps them to status codes and the batch runner uses
// them to decide whether an item is worth logging as data vs. caller error.
var (
	// ErrInvalidArgument marks out-of-range days-of-year, conflicting
	// options or misuse of an already-transformed dataset.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingData marks a day-of-year or year with no defined values
	// to rank or classify against.
	ErrMissingData = errors.New("missing data")

	// ErrDataUnavailable marks a current-year fetch that produced no
	// usable values at all.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidRegion marks an unrecognized region identifier or an
	// empty archive grid for a region.
	ErrInvalidRegion = errors.New("invalid region")
)
