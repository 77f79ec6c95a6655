package domain

import "context"

// BaseLoader supplies the archived daily-mean grid for a region.
type BaseLoader interface {
	// LoadBase returns a Dataset populated with the base grid and region
	// attribute for all archived years. Unknown regions yield
	// ErrInvalidRegion; the returned dataset is never empty.
	LoadBase(ctx context.Context, region string) (*Dataset, error)
}
