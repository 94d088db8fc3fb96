package engine

// PassResult is the engine output for one scrape pass: the free intervals
// per date, the tagged events seen, and how many malformed records were
// dropped along the way.
type PassResult struct {
	Gaps    map[DateKey][]GapInterval
	Events  []ClassifiedEvent
	Skipped int
}

// MergedSchedule is the combination of one or more passes for a single
// court.
type MergedSchedule struct {
	Gaps    map[DateKey][]GapInterval
	Events  []ClassifiedEvent
	Skipped int
}

type dedupKey struct {
	Tag       string
	Date      DateKey
	StartHour float64
	Title     string
}

// Merge combines passes in order. Passes are expected to cover disjoint
// date ranges; when two passes report the same date the later pass's gap
// list replaces the earlier one entirely. Callers handing in overlapping
// ranges get last-write-wins, not an error. Classified events are
// concatenated and deduplicated by (tag, date, start, title); the first
// occurrence keeps whichever source produced it.
func Merge(passes ...PassResult) MergedSchedule {
	merged := MergedSchedule{Gaps: make(map[DateKey][]GapInterval)}
	seen := make(map[dedupKey]struct{})
	for _, p := range passes {
		for date, gaps := range p.Gaps {
			merged.Gaps[date] = gaps
		}
		for _, ev := range p.Events {
			k := dedupKey{Tag: ev.Tag, Date: ev.Date, StartHour: ev.StartHour, Title: ev.Title}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			merged.Events = append(merged.Events, ev)
		}
		merged.Skipped += p.Skipped
	}
	return merged
}

// Window filters the schedule to the inclusive [start, start+days-1] range.
// Dates outside the window are dropped, not errored. A non-positive days
// count empties the schedule.
func (m MergedSchedule) Window(start DateKey, days int) MergedSchedule {
	end := start.AddDays(days) // exclusive
	out := MergedSchedule{Gaps: make(map[DateKey][]GapInterval), Skipped: m.Skipped}
	for date, gaps := range m.Gaps {
		if inWindow(date, start, end) {
			out.Gaps[date] = gaps
		}
	}
	for _, ev := range m.Events {
		if inWindow(ev.Date, start, end) {
			out.Events = append(out.Events, ev)
		}
	}
	return out
}

func inWindow(date, start, end DateKey) bool {
	return !date.Before(start) && date.Before(end)
}
