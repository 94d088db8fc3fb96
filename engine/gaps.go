package engine

import "sort"

// DefaultMinGapHours is the minimum gap length worth reporting.
const DefaultMinGapHours = 1.0

// GapCalculator computes the free intervals of a single day from its
// reservations and the operating window for that weekday.
type GapCalculator struct {
	Table  OperatingTable
	MinGap float64
}

// NewGapCalculator builds a calculator over the given operating table.
// A non-positive minGap falls back to DefaultMinGapHours.
func NewGapCalculator(table OperatingTable, minGap float64) GapCalculator {
	if minGap <= 0 {
		minGap = DefaultMinGapHours
	}
	return GapCalculator{Table: table, MinGap: minGap}
}

// DayGaps returns the free intervals of date, sorted ascending by start and
// pairwise non-overlapping. An empty events slice yields the whole open
// window as one gap; a packed day yields none. Sub-threshold gaps are
// dropped outright, never merged into a neighbor.
//
// The sweep sorts events by start (stable, so equal starts keep arrival
// order), then walks a cursor forward from the open hour. Overlapping and
// nested reservations are absorbed because the cursor only ever moves to
// the farthest end seen so far.
func (g GapCalculator) DayGaps(date DateKey, events []NormalizedEvent) []GapInterval {
	window := g.Table.ForDate(date)

	sorted := make([]NormalizedEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartHour < sorted[j].StartHour
	})

	var gaps []GapInterval
	cursor := window.Open
	for _, ev := range sorted {
		if ev.StartHour > cursor && ev.StartHour-cursor >= g.MinGap {
			gaps = append(gaps, GapInterval{Date: date, StartHour: cursor, EndHour: ev.StartHour})
		}
		if ev.EndHour > cursor {
			cursor = ev.EndHour
		}
	}
	if cursor < window.Close && window.Close-cursor >= g.MinGap {
		gaps = append(gaps, GapInterval{Date: date, StartHour: cursor, EndHour: window.Close})
	}
	return gaps
}
