package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eriehall.dev/gapfinder/engine"
)

const icalUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ICalSource pulls a court's reservation calendar from its iCal feed.
type ICalSource struct {
	client *http.Client
	name   string
	url    string
	loc    *time.Location
	now    func() time.Time
}

// NewICalSource builds a feed source for one court. loc is the facility's
// local timezone, used both for floating timestamps and for the past-event
// cutoff; nil means UTC.
func NewICalSource(name, url string, loc *time.Location) *ICalSource {
	if loc == nil {
		loc = time.UTC
	}
	return &ICalSource{
		client: &http.Client{Timeout: 30 * time.Second},
		name:   name,
		url:    url,
		loc:    loc,
		now:    time.Now,
	}
}

func (s *ICalSource) Name() string {
	return s.name
}

// Fetch downloads and parses the feed. Events that already ended before
// today (facility time) are dropped, matching what a user checking
// availability cares about.
func (s *ICalSource) Fetch(ctx context.Context) (*Result, error) {
	result := &Result{FetchedAt: s.now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", icalUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		result.Status = StatusNetworkError
		result.Error = fmt.Sprintf("fetch feed: %v", err)
		return result, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Status = StatusNetworkError
		result.Error = fmt.Sprintf("feed returned status %d", resp.StatusCode)
		return result, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Status = StatusNetworkError
		result.Error = fmt.Sprintf("read feed body: %v", err)
		return result, nil
	}

	text := string(body)
	if !strings.Contains(text, "BEGIN:VCALENDAR") {
		result.Status = StatusParseError
		result.Error = "response is not an iCal feed"
		return result, nil
	}

	today := engine.DateKeyOf(s.now().In(s.loc))
	result.Records = s.parse(text, today)
	if len(result.Records) > 0 {
		result.Status = StatusSuccess
	} else {
		result.Status = StatusSuccessEmpty
	}
	return result, nil
}

// parse walks the unfolded feed, emitting one record per VEVENT with usable
// timestamps. Events starting on a date before today are skipped.
func (s *ICalSource) parse(text string, today engine.DateKey) []engine.RawEvent {
	var records []engine.RawEvent
	var cur map[string]icalProp
	inEvent := false

	for _, line := range unfoldLines(text) {
		name, prop := parseProp(line)
		switch name {
		case "BEGIN":
			if prop.value == "VEVENT" {
				inEvent = true
				cur = make(map[string]icalProp)
			}
		case "END":
			if prop.value != "VEVENT" || !inEvent {
				continue
			}
			inEvent = false
			rec, err := s.eventFrom(cur)
			if err != nil {
				slog.Warn("skipping feed event", "source", s.name, "error", err)
				continue
			}
			if engine.DateKeyOf(rec.Start.In(s.loc)).Before(today) {
				continue
			}
			records = append(records, rec)
		default:
			if inEvent {
				cur[name] = prop
			}
		}
	}
	return records
}

func (s *ICalSource) eventFrom(props map[string]icalProp) (engine.RawEvent, error) {
	start, ok := props["DTSTART"]
	if !ok {
		return engine.RawEvent{}, fmt.Errorf("event has no DTSTART")
	}
	end, ok := props["DTEND"]
	if !ok {
		return engine.RawEvent{}, fmt.Errorf("event has no DTEND")
	}
	startAt, err := s.parseDateTime(start)
	if err != nil {
		return engine.RawEvent{}, fmt.Errorf("DTSTART: %w", err)
	}
	endAt, err := s.parseDateTime(end)
	if err != nil {
		return engine.RawEvent{}, fmt.Errorf("DTEND: %w", err)
	}
	return engine.RawEvent{
		Title:  unescapeText(props["SUMMARY"].value),
		Start:  startAt,
		End:    endAt,
		Source: s.name,
	}, nil
}

// parseDateTime handles the three DATE-TIME shapes feeds emit: UTC
// ("...T...Z"), zoned (TZID param), and floating. Floating times are taken
// as UTC, matching how the feed behaves in practice. All-day DATE values
// are rejected; they carry no times to compute gaps from.
func (s *ICalSource) parseDateTime(p icalProp) (time.Time, error) {
	v := p.value
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if len(v) == 8 {
		return time.Time{}, fmt.Errorf("all-day DATE value")
	}
	loc := time.UTC
	if tzid := p.params["TZID"]; tzid != "" {
		l, err := time.LoadLocation(tzid)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown TZID %q", tzid)
		}
		loc = l
	}
	return time.ParseInLocation("20060102T150405", v, loc)
}

type icalProp struct {
	params map[string]string
	value  string
}

// unfoldLines joins continuation lines (those starting with a space or tab)
// onto their parent, per the iCal folding rule.
func unfoldLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var lines []string
	for _, l := range raw {
		if l == "" {
			continue
		}
		if (l[0] == ' ' || l[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// parseProp splits "NAME;PARAM=VAL:value" into its parts. The property name
// is uppercased; values keep their case.
func parseProp(line string) (string, icalProp) {
	head, value, ok := strings.Cut(line, ":")
	if !ok {
		return strings.ToUpper(line), icalProp{}
	}
	parts := strings.Split(head, ";")
	prop := icalProp{value: value}
	if len(parts) > 1 {
		prop.params = make(map[string]string, len(parts)-1)
		for _, p := range parts[1:] {
			if k, v, ok := strings.Cut(p, "="); ok {
				prop.params[strings.ToUpper(k)] = v
			}
		}
	}
	return strings.ToUpper(parts[0]), prop
}

func unescapeText(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(s)
}
