package engine

import (
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"time"
)

// OpenLabel marks a free interval in the rendered report.
const OpenLabel = "Open"

// Slot is one rendered report entry: either a free interval labeled Open or
// a classified reservation labeled with its tag.
type Slot struct {
	Start         string  `json:"start"`
	End           string  `json:"end"`
	DurationHours float64 `json:"duration_hours"`
	Label         string  `json:"label"`
}

// CourtDay is one date's slots for a court, start-ascending.
type CourtDay struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// Report is the serialized run output: a UTC generation instant and each
// court's date-ascending day list.
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Courts      map[string][]CourtDay `json:"courts"`
}

// NewReport starts a report stamped with now in UTC, truncated to whole
// seconds so test output is deterministic.
func NewReport(now time.Time) *Report {
	return &Report{
		GeneratedAt: now.UTC().Truncate(time.Second),
		Courts:      make(map[string][]CourtDay),
	}
}

// AddCourt renders one court's merged schedule into the report. Classified
// events are injected into their date's slot list and the combined sequence
// is sorted by start hour, so gaps and tagged sessions interleave
// chronologically. Dates are ordered by calendar value.
func (r *Report) AddCourt(name string, sched MergedSchedule) {
	type daySlot struct {
		startHour float64
		slot      Slot
	}
	byDate := make(map[DateKey][]daySlot)

	for date, gaps := range sched.Gaps {
		for _, g := range gaps {
			byDate[date] = append(byDate[date], daySlot{
				startHour: g.StartHour,
				slot: Slot{
					Start:         FormatClock(g.StartHour),
					End:           FormatClock(g.EndHour),
					DurationHours: roundTenth(g.Duration()),
					Label:         OpenLabel,
				},
			})
		}
		// a fully booked date still appears, with an empty slot list
		if _, ok := byDate[date]; !ok {
			byDate[date] = nil
		}
	}
	for _, ev := range sched.Events {
		byDate[ev.Date] = append(byDate[ev.Date], daySlot{
			startHour: ev.StartHour,
			slot: Slot{
				Start:         FormatClock(ev.StartHour),
				End:           FormatClock(ev.EndHour),
				DurationHours: roundTenth(ev.EndHour - ev.StartHour),
				Label:         ev.Tag,
			},
		})
	}

	dates := make([]DateKey, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	days := make([]CourtDay, 0, len(dates))
	for _, date := range dates {
		entries := byDate[date]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].startHour < entries[j].startHour
		})
		day := CourtDay{Date: date.Display(), Slots: make([]Slot, 0, len(entries))}
		for _, e := range entries {
			day.Slots = append(day.Slots, e.slot)
		}
		days = append(days, day)
	}
	r.Courts[name] = days
}

// TotalSlots counts rendered slots across all courts.
func (r *Report) TotalSlots() int {
	n := 0
	for _, days := range r.Courts {
		for _, d := range days {
			n += len(d.Slots)
		}
	}
	return n
}

// Encode marshals the report. Each court is encoded on its own so that an
// encoding failure drops only that court from the output; the remaining
// courts are still emitted.
func (r *Report) Encode() ([]byte, error) {
	courts := make(map[string]json.RawMessage, len(r.Courts))
	for name, days := range r.Courts {
		b, err := json.Marshal(days)
		if err != nil {
			slog.Error("dropping court from report", "court", name, "error", err)
			continue
		}
		courts[name] = b
	}
	return json.MarshalIndent(struct {
		GeneratedAt time.Time                  `json:"generated_at"`
		Courts      map[string]json.RawMessage `json:"courts"`
	}{r.GeneratedAt, courts}, "", "  ")
}

// roundTenth rounds for display only; stored durations stay unrounded.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
