package render

import (
	"fmt"
	"time"

	"github.com/foehnwatch/tas-tracker/internal/regions"
)

// Tick is one labelled x-axis position.
type Tick struct {
	Day   int    `json:"day"`
	Label string `json:"label"`
}

// tickDays are the fixed x-axis positions used on every chart.
var tickDays = []int{1, 60, 121, 182, 243, 304, 365}

var tickLabels = map[regions.Language][]string{
	regions.German:  {"1. Jän.", "1. März", "1. Mai", "1. Jul.", "1. Sep", "1. Nov.", "31. Dez."},
	regions.English: {"1. Jan.", "1. Mar.", "1. May", "1. Jul.", "1. Sep", "1. Nov.", "31. Dec."},
}

func ticksFor(lang regions.Language) []Tick {
	labels, ok := tickLabels[lang]
	if !ok {
		labels = tickLabels[regions.English]
	}
	ticks := make([]Tick, len(tickDays))
	for i, day := range tickDays {
		ticks[i] = Tick{Day: day, Label: labels[i]}
	}
	return ticks
}

func yLabelFor(lang regions.Language) string {
	if lang == regions.German {
		return "Temperatur (°C)"
	}
	return "Temperature (°C)"
}

// title composes the chart heading for one panel. The axis has no
// February 29, so the calendar date comes from a non-leap reference
// year: day 60 is always March 1 and day 365 December 31, whatever the
// target year.
func title(lang regions.Language, cummean bool, regionLabel string, year, lastDay int) string {
	ref := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, lastDay-1)
	date := fmt.Sprintf("%02d.%02d.%d", ref.Day(), int(ref.Month()), year)
	switch {
	case lang == regions.German && cummean:
		return fmt.Sprintf("Kumulative Mitteltemperatur %s bis %s", regionLabel, date)
	case lang == regions.German:
		return fmt.Sprintf("Tagesmitteltemperatur %s bis %s", regionLabel, date)
	case cummean:
		return fmt.Sprintf("Cumulative mean temperature %s to %s", regionLabel, date)
	default:
		return fmt.Sprintf("Daily mean temperature %s to %s", regionLabel, date)
	}
}
