// Package engine turns raw reservation records into sorted free intervals
// per day, tags sessions matching configured activities, and merges results
// pulled across multiple scrape passes into one report per court.
package engine

import "time"

// DisplayDateLayout is the human-readable date form used in reports and
// calendar grid labels, e.g. "Mon Jan 19 2026".
const DisplayDateLayout = "Mon Jan 2 2006"

// RawEvent is one reservation record as delivered by an acquisition source.
// Start and End carry explicit timezones; Source identifies the court or
// feed the record came from.
type RawEvent struct {
	Title  string
	Start  time.Time
	End    time.Time
	Source string
}

// DateKey is a canonical calendar date. It is used as the merge and ordering
// key everywhere instead of a display string, so ordering is always by
// calendar value and never lexical.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// DateKeyOf derives the calendar date of t in t's own location.
func DateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

// Time returns midnight of the date in UTC.
func (k DateKey) Time() time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether k is an earlier calendar date than other.
func (k DateKey) Before(other DateKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// AddDays returns the date n days after k.
func (k DateKey) AddDays(n int) DateKey {
	return DateKeyOf(k.Time().AddDate(0, 0, n))
}

// Weekday returns the day of week of k.
func (k DateKey) Weekday() time.Weekday {
	return k.Time().Weekday()
}

// Display renders k as "Mon Jan 19 2026".
func (k DateKey) Display() string {
	return k.Time().Format(DisplayDateLayout)
}

// IsZero reports whether k is the zero date.
func (k DateKey) IsZero() bool {
	return k == DateKey{}
}

// ParseDisplayDate parses "Mon Jan 19 2026" (commas tolerated) back into a
// DateKey.
func ParseDisplayDate(s string) (DateKey, error) {
	clean := removeCommas(s)
	t, err := time.Parse(DisplayDateLayout, clean)
	if err != nil {
		return DateKey{}, err
	}
	return DateKeyOf(t), nil
}

func removeCommas(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// NormalizedEvent is a reservation reduced to its local calendar date and
// fractional start/end hours. StartHour is in [0,24); EndHour never exceeds
// 24 (records crossing midnight are rejected during normalization).
type NormalizedEvent struct {
	Date      DateKey
	StartHour float64
	EndHour   float64
	Source    string
}

// OperatingWindow is the open/close pair for one weekday, as fractional
// hours.
type OperatingWindow struct {
	Open  float64
	Close float64
}

// OperatingTable holds one window per weekday, indexed 0=Monday..6=Sunday.
type OperatingTable [7]OperatingWindow

// FlatTable builds a table applying the same open/close pair to every
// weekday, the degenerate single-pair configuration.
func FlatTable(open, close float64) OperatingTable {
	var t OperatingTable
	for i := range t {
		t[i] = OperatingWindow{Open: open, Close: close}
	}
	return t
}

// ForDate returns the operating window for the weekday of date.
func (t OperatingTable) ForDate(date DateKey) OperatingWindow {
	// time.Weekday has Sunday=0; the table is Monday-first.
	return t[(int(date.Weekday())+6)%7]
}

// GapInterval is a free interval within operating hours on one date.
type GapInterval struct {
	Date      DateKey
	StartHour float64
	EndHour   float64
}

// Duration returns the gap length in hours, unrounded.
func (g GapInterval) Duration() float64 {
	return g.EndHour - g.StartHour
}

// ClassifiedEvent is a reservation whose title matched a keyword rule.
type ClassifiedEvent struct {
	Tag       string
	Date      DateKey
	StartHour float64
	EndHour   float64
	Title     string
	Source    string
}
