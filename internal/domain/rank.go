package domain

import (
	"fmt"
	"math"
	"sort"
)

// RankGrid holds one integer rank per (year, day-of-year) cell. Rank 1 is
// the highest value among all years sharing that day-of-year; undefined
// cells hold 0 and never occupy a position ahead of defined values. For an
// out-of-sample target the grid carries one extra row, appended last, for
// the target year.
//
// A grid is derived fresh from a Dataset and never mutated; recompute it
// whenever the target, truncation or cumulative mode changes.
type RankGrid struct {
	Years []int
	Days  int
	ranks [][]int
}

// YearIndex reports the grid row for a year.
func (g *RankGrid) YearIndex(year int) (int, bool) {
	for i, y := range g.Years {
		if y == year {
			return i, true
		}
	}
	return 0, false
}

// At returns the rank of the given grid row at a 1-based day-of-year.
// 0 means the cell is undefined.
func (g *RankGrid) At(row, day int) int {
	if row < 0 || row >= len(g.ranks) || day < 1 || day > g.Days {
		return 0
	}
	return g.ranks[row][day-1]
}

// YearRanks returns a copy of the rank series for a year.
func (g *RankGrid) YearRanks(year int) ([]int, bool) {
	idx, ok := g.YearIndex(year)
	if !ok {
		return nil, false
	}
	return append([]int(nil), g.ranks[idx]...), true
}

// DefinedAt counts the years holding a rank at a 1-based day-of-year,
// i.e. the candidate pool size for that column.
func (g *RankGrid) DefinedAt(day int) int {
	if day < 1 || day > g.Days {
		return 0
	}
	n := 0
	for _, row := range g.ranks {
		if row[day-1] != 0 {
			n++
		}
	}
	return n
}

// Rank computes the rank grid for the store's current state. An in-sample
// target is ranked within the base grid, where its own row participates
// naturally; an out-of-sample target is appended as an additional year row
// first.
//
// Each day-of-year column is ranked independently: values sort descending
// under a stable order, so exactly-equal values keep their original row
// order and the earlier year takes the better (smaller) rank. The result
// is reproducible byte for byte for identical input.
func Rank(d *Dataset) (*RankGrid, error) {
	if d.Target == nil {
		return nil, fmt.Errorf("%w: no target year attached", ErrInvalidArgument)
	}

	rows := d.Base
	years := d.Years
	if _, ok := d.YearIndex(d.Meta.Year); !ok {
		rows = append(append([][]float64(nil), d.Base...), d.Target)
		years = append(append([]int(nil), d.Years...), d.Meta.Year)
	}

	g := &RankGrid{
		Years: append([]int(nil), years...),
		Days:  d.Days,
		ranks: make([][]int, len(rows)),
	}
	for i := range g.ranks {
		g.ranks[i] = make([]int, d.Days)
	}

	type cell struct {
		row int
		val float64
	}
	defined := make([]cell, 0, len(rows))
	for c := 0; c < d.Days; c++ {
		defined = defined[:0]
		for r := range rows {
			if v := rows[r][c]; !math.IsNaN(v) {
				defined = append(defined, cell{row: r, val: v})
			}
		}
		sort.SliceStable(defined, func(i, j int) bool {
			return defined[i].val > defined[j].val
		})
		for pos, cl := range defined {
			g.ranks[cl.row][c] = pos + 1
		}
	}
	return g, nil
}
