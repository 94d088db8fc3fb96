package engine

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(AM|PM)$`)

// ParseClock converts 12-hour clock text like "9:05AM" or "2PM" (minutes
// optional, suffix case-insensitive) to a fractional hour. 12:00AM maps to
// 0.0 and 12:00PM to 12.0.
func ParseClock(s string) (float64, error) {
	m := clockRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0, fmt.Errorf("unparseable clock text %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	if hour < 1 || hour > 12 {
		return 0, fmt.Errorf("clock hour %d out of range in %q", hour, s)
	}
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
		if minute > 59 {
			return 0, fmt.Errorf("clock minute %d out of range in %q", minute, s)
		}
	}
	if m[3] == "PM" && hour != 12 {
		hour += 12
	} else if m[3] == "AM" && hour == 12 {
		hour = 0
	}
	return float64(hour) + float64(minute)/60, nil
}

// FormatClock renders a fractional hour back to 12-hour clock text, e.g.
// 9.0833 -> "9:05AM", 14.0 -> "2PM". Minutes are rounded to the nearest
// whole minute, so ParseClock(FormatClock(h)) recovers h within minute
// resolution.
func FormatClock(hour float64) string {
	total := int(math.Round(hour * 60))
	h := total / 60
	m := total % 60
	if h >= 24 {
		h -= 24
	}
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	if h > 12 {
		h -= 12
	} else if h == 0 {
		h = 12
	}
	if m > 0 {
		return fmt.Sprintf("%d:%02d%s", h, m, period)
	}
	return fmt.Sprintf("%d%s", h, period)
}

// Normalizer converts raw reservation records to local calendar dates and
// fractional hours. All timestamps are shifted into the facility's location
// before the date key is derived, so records arriving in another zone land
// on the correct local day.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer returns a Normalizer for the facility location. A nil
// location means UTC.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize converts one record. It returns an error for records with
// missing timestamps, an end before the start, or a span crossing the local
// day boundary; callers drop such records and count them as skipped, the
// batch never aborts.
func (n *Normalizer) Normalize(rec RawEvent) (NormalizedEvent, error) {
	if rec.Start.IsZero() || rec.End.IsZero() {
		return NormalizedEvent{}, fmt.Errorf("record %q: missing timestamp", rec.Title)
	}
	start := rec.Start.In(n.loc)
	end := rec.End.In(n.loc)
	if end.Before(start) {
		return NormalizedEvent{}, fmt.Errorf("record %q: end precedes start", rec.Title)
	}

	date := DateKeyOf(start)
	endDate := DateKeyOf(end)
	endHour := hourOf(end)
	switch {
	case endDate == date:
		// same local day
	case endDate == date.AddDays(1) && endHour == 0:
		// ends exactly at midnight; treat as hour 24 of the start day
		endHour = 24
	default:
		return NormalizedEvent{}, fmt.Errorf("record %q: crosses local day boundary", rec.Title)
	}

	return NormalizedEvent{
		Date:      date,
		StartHour: hourOf(start),
		EndHour:   endHour,
		Source:    rec.Source,
	}, nil
}

func hourOf(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}
