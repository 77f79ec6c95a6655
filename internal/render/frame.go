// Package render assembles the chart-facing frame documents consumed by
// the external renderer: truncated/cumulative series, historical quantile
// bands, the rank series, exceedance marks and the last-day annotation.
// It decides what must be drawn, never how.
package render

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/regions"
)

// Kind selects which panels a frame carries.
type Kind string

const (
	KindDaily   Kind = "daily"
	KindCumMean Kind = "cummean"
	KindBoth    Kind = "both"
)

// ParseKind validates a user-supplied frame kind; empty defaults to both
// panels.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDaily, KindCumMean, KindBoth:
		return Kind(s), nil
	case "":
		return KindBoth, nil
	default:
		return "", fmt.Errorf("%w: unknown frame kind %q (want daily, cummean or both)", domain.ErrInvalidArgument, s)
	}
}

// CenterLine selects the historical reference line drawn behind the
// target year.
type CenterLine string

const (
	CenterMean   CenterLine = "mean"
	CenterMedian CenterLine = "median"
)

// ParseCenter resolves the mean/median selection. Exactly one may be
// requested; neither means the median default.
func ParseCenter(mean, median bool) (CenterLine, error) {
	if mean && median {
		return "", fmt.Errorf("%w: only one of mean and median can be selected", domain.ErrInvalidArgument)
	}
	if mean {
		return CenterMean, nil
	}
	return CenterMedian, nil
}

// quantileRanges are the shaded historical envelopes, widest first.
var quantileRanges = [][2]float64{
	{0.0, 1.0},
	{0.1, 0.9},
	{0.2, 0.8},
	{0.3, 0.7},
	{0.4, 0.6},
}

// flipDay is the day-of-year past which the last-day annotation would run
// off the right edge of the chart and must be placed on the other side.
const flipDay = 321

// Band is one shaded quantile envelope over the base grid.
type Band struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Low   []Value `json:"low"`
	High  []Value `json:"high"`
}

// Summary is the last-day annotation payload.
type Summary struct {
	Day     int     `json:"day"`
	Anomaly float64 `json:"anomaly"`
	Rank    int     `json:"rank"`
	Total   int     `json:"total"`
	Flip    bool    `json:"flip"`
}

// Panel holds everything the renderer draws for one series mode.
type Panel struct {
	Title       string     `json:"title"`
	CumMean     bool       `json:"cummean"`
	Center      CenterLine `json:"center"`
	CenterLine  []Value    `json:"center_line"`
	Bands       []Band     `json:"bands"`
	Target      []Value    `json:"target"`
	TargetRanks []int      `json:"target_ranks"`
	Exceedance  []bool     `json:"exceedance,omitempty"`
	Unseen      []bool     `json:"unseen,omitempty"`
	Threshold   float64    `json:"threshold"`
	Summary     Summary    `json:"summary"`
}

// Frame is one render-ready chart document.
type Frame struct {
	Region      string           `json:"region"`
	RegionLabel string           `json:"region_label"`
	Year        int              `json:"year"`
	LastDay     int              `json:"last_day"`
	AxisDays    int              `json:"axis_days"`
	Kind        Kind             `json:"kind"`
	Language    regions.Language `json:"language"`
	YLabel      string           `json:"y_label"`
	Ticks       []Tick           `json:"ticks"`
	Daily       *Panel           `json:"daily,omitempty"`
	CumMean     *Panel           `json:"cummean,omitempty"`
	RecordSeen  bool             `json:"record_seen"`
	UnseenSeen  bool             `json:"unseen_seen"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Input bundles one analysis chain's results for panel assembly.
type Input struct {
	Dataset    *domain.Dataset
	Grid       *domain.RankGrid
	Summary    domain.DaySummary
	Exceedance domain.Exceedance
}

// Build assembles a frame from the analysis results. The daily input
// feeds the daily panel, the cum input the cumulative one; each is
// required exactly when the kind includes its panel. Both inputs must
// describe the same region and year.
func Build(region regions.Region, lang regions.Language, kind Kind, center CenterLine, daily, cum *Input) (*Frame, error) {
	switch center {
	case CenterMean, CenterMedian:
	default:
		return nil, fmt.Errorf("%w: unknown center line %q", domain.ErrInvalidArgument, center)
	}

	var ref *Input
	switch kind {
	case KindDaily:
		ref = daily
	case KindCumMean:
		ref = cum
	case KindBoth:
		ref = daily
		if daily == nil || cum == nil {
			return nil, fmt.Errorf("%w: kind %q needs both panels", domain.ErrInvalidArgument, kind)
		}
	default:
		return nil, fmt.Errorf("%w: unknown frame kind %q", domain.ErrInvalidArgument, kind)
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: kind %q is missing its panel input", domain.ErrInvalidArgument, kind)
	}

	label := region.DisplayName(lang)
	frame := &Frame{
		Region:      region.ID,
		RegionLabel: label,
		Year:        ref.Dataset.Meta.Year,
		LastDay:     ref.Dataset.Meta.LastDay,
		AxisDays:    ref.Dataset.Days,
		Kind:        kind,
		Language:    lang,
		YLabel:      yLabelFor(lang),
		Ticks:       ticksFor(lang),
		GeneratedAt: clock.Now().UTC(),
	}

	if kind == KindDaily || kind == KindBoth {
		p, err := buildPanel(daily, lang, label, center, false)
		if err != nil {
			return nil, err
		}
		frame.Daily = p
	}
	if kind == KindCumMean || kind == KindBoth {
		p, err := buildPanel(cum, lang, label, center, true)
		if err != nil {
			return nil, err
		}
		frame.CumMean = p
	}

	for _, in := range []*Input{daily, cum} {
		if in == nil {
			continue
		}
		frame.RecordSeen = frame.RecordSeen || in.Dataset.Annotations.RecordSeen
		frame.UnseenSeen = frame.UnseenSeen || in.Dataset.Annotations.UnseenSeen
	}
	return frame, nil
}

func buildPanel(in *Input, lang regions.Language, label string, center CenterLine, wantCum bool) (*Panel, error) {
	if in == nil || in.Dataset == nil || in.Grid == nil {
		return nil, fmt.Errorf("%w: missing panel input", domain.ErrInvalidArgument)
	}
	ds := in.Dataset
	if ds.Meta.CumMean != wantCum {
		return nil, fmt.Errorf("%w: dataset cummean=%t does not match panel", domain.ErrInvalidArgument, ds.Meta.CumMean)
	}
	if ds.Target == nil {
		return nil, fmt.Errorf("%w: dataset has no target series", domain.ErrInvalidArgument)
	}

	ranks, ok := in.Grid.YearRanks(ds.Meta.Year)
	if !ok {
		return nil, fmt.Errorf("%w: rank grid does not contain year %d", domain.ErrInvalidArgument, ds.Meta.Year)
	}

	p := &Panel{
		Title:       title(lang, wantCum, label, ds.Meta.Year, ds.Meta.LastDay),
		CumMean:     wantCum,
		Center:      center,
		CenterLine:  centerLine(ds, center),
		Bands:       bands(ds),
		Target:      values(ds.Target),
		TargetRanks: ranks,
		Threshold:   in.Exceedance.Threshold,
		Summary: Summary{
			Day:     in.Summary.Day,
			Anomaly: in.Summary.Anomaly,
			Rank:    in.Summary.Rank,
			Total:   in.Summary.Total,
			Flip:    in.Summary.Day > flipDay,
		},
	}
	if !in.Exceedance.Disabled {
		p.Exceedance = in.Exceedance.Mask
		p.Unseen = in.Exceedance.Unseen
	}
	return p, nil
}

// bands computes the shaded quantile envelopes over the full base grid,
// day by day. Days with no defined values yield NaN envelopes.
func bands(ds *domain.Dataset) []Band {
	out := make([]Band, len(quantileRanges))
	for i, qr := range quantileRanges {
		out[i] = Band{
			Lower: qr[0],
			Upper: qr[1],
			Low:   make([]Value, ds.Days),
			High:  make([]Value, ds.Days),
		}
	}
	col := make([]float64, 0, len(ds.Base))
	for day := 0; day < ds.Days; day++ {
		col = col[:0]
		for _, row := range ds.Base {
			if v := row[day]; !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		if len(col) == 0 {
			for i := range out {
				out[i].Low[day] = Value(math.NaN())
				out[i].High[day] = Value(math.NaN())
			}
			continue
		}
		sort.Float64s(col)
		for i, qr := range quantileRanges {
			out[i].Low[day] = Value(stat.Quantile(qr[0], stat.LinInterp, col, nil))
			out[i].High[day] = Value(stat.Quantile(qr[1], stat.LinInterp, col, nil))
		}
	}
	return out
}

// centerLine computes the per-day historical mean or median of the base
// grid.
func centerLine(ds *domain.Dataset, center CenterLine) []Value {
	out := make([]Value, ds.Days)
	col := make([]float64, 0, len(ds.Base))
	for day := 0; day < ds.Days; day++ {
		col = col[:0]
		for _, row := range ds.Base {
			if v := row[day]; !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		if len(col) == 0 {
			out[day] = Value(math.NaN())
			continue
		}
		if center == CenterMean {
			out[day] = Value(stat.Mean(col, nil))
			continue
		}
		sort.Float64s(col)
		out[day] = Value(stat.Quantile(0.5, stat.LinInterp, col, nil))
	}
	return out
}
