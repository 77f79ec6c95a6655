package domain

import (
	"fmt"
	"math"
)

// maxDayOfYear is the highest day-of-year a caller may name. The archive
// axis itself holds 365 days (the leap day is dropped uniformly), so 366
// clamps to the end of the axis instead of erroring.
const maxDayOfYear = 366

// Meta carries the dataset attributes that every transform must preserve
// together. LastDay and CumMean travel as a pair: once CumMean is set the
// values are running means truncated at LastDay, not raw daily values.
type Meta struct {
	Region  string
	Year    int  // target year under analysis; zero until a target is attached
	LastDay int  // last day-of-year considered valid for the target, 1-based
	CumMean bool // values are cumulative running means
}

// Annotations are derived display hints written by classification and read
// by the rendering collaborator. They are only ever raised, never cleared,
// during one analysis chain.
type Annotations struct {
	RecordSeen bool // some day matched the exceedance threshold
	UnseenSeen bool // some day exceeded the all-time archive maximum
}

// Dataset is the series store: the archived base grid, years × day-of-year,
// plus the target-year series under analysis. Cells hold daily mean
// temperature in °C; NaN marks an undefined (missing) value.
//
// Transforms never mutate a Dataset they are given except where documented
// (AttachTarget records the target into the store); TruncateAfter and
// CumulativeMean return deep copies.
type Dataset struct {
	Meta        Meta
	Years       []int       // ascending, one entry per base row
	Days        int         // length of the day-of-year axis, normally 365
	Base        [][]float64 // Base[i][d-1] = value for Years[i] at day-of-year d
	Target      []float64   // nil until AttachTarget
	Annotations Annotations
}

// NewDataset builds a store from an archive grid. The grid is deep-copied;
// the caller may reuse its buffers. Years must be strictly ascending and
// rows must be congruent. An empty grid is rejected so no downstream stage
// ever operates on a region that loaded nothing.
func NewDataset(region string, years []int, base [][]float64) (*Dataset, error) {
	if region == "" {
		return nil, fmt.Errorf("%w: empty region identifier", ErrInvalidRegion)
	}
	if len(years) == 0 || len(base) == 0 {
		return nil, fmt.Errorf("%w: empty base grid for region %q", ErrInvalidRegion, region)
	}
	if len(years) != len(base) {
		return nil, fmt.Errorf("%w: %d years for %d grid rows", ErrInvalidArgument, len(years), len(base))
	}
	days := len(base[0])
	if days == 0 {
		return nil, fmt.Errorf("%w: zero-length day axis for region %q", ErrInvalidRegion, region)
	}
	for i, row := range base {
		if len(row) != days {
			return nil, fmt.Errorf("%w: row %d has %d days, want %d", ErrInvalidArgument, i, len(row), days)
		}
	}
	for i := 1; i < len(years); i++ {
		if years[i] <= years[i-1] {
			return nil, fmt.Errorf("%w: year axis not strictly ascending at index %d", ErrInvalidArgument, i)
		}
	}

	grid := make([][]float64, len(base))
	for i, row := range base {
		grid[i] = append([]float64(nil), row...)
	}
	return &Dataset{
		Meta:  Meta{Region: region, LastDay: days},
		Years: append([]int(nil), years...),
		Days:  days,
		Base:  grid,
	}, nil
}

// YearIndex reports the base-grid row holding year, if archived.
func (d *Dataset) YearIndex(year int) (int, bool) {
	for i, y := range d.Years {
		if y == year {
			return i, true
		}
	}
	return 0, false
}

// Clone deep-copies the dataset, including the target series and metadata.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Meta:        d.Meta,
		Years:       append([]int(nil), d.Years...),
		Days:        d.Days,
		Base:        make([][]float64, len(d.Base)),
		Annotations: d.Annotations,
	}
	for i, row := range d.Base {
		out.Base[i] = append([]float64(nil), row...)
	}
	if d.Target != nil {
		out.Target = append([]float64(nil), d.Target...)
	}
	return out
}

// TruncateAfter returns a copy with every target value past the given
// day-of-year masked as undefined and LastDay set to it. The base grid is
// left intact, so nothing is lost: truncating at the same cutoff twice
// yields the identical result.
func (d *Dataset) TruncateAfter(day int) (*Dataset, error) {
	if day < 1 || day > maxDayOfYear {
		return nil, fmt.Errorf("%w: day-of-year %d outside [1, %d]", ErrInvalidArgument, day, maxDayOfYear)
	}
	if day > d.Days {
		// Leap day on a 365-day axis.
		day = d.Days
	}
	out := d.Clone()
	for i := day; i < out.Days; i++ {
		if out.Target != nil {
			out.Target[i] = math.NaN()
		}
	}
	out.Meta.LastDay = day
	return out, nil
}
