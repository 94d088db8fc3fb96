package feed

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"eriehall.dev/gapfinder/engine"
)

// gridLabelRe matches the accessible label the calendar grid puts on each
// event cell, e.g.
// "Badminton Open Play, Mon Jan 19 2026 from 6:00PM until 8:00PM".
var gridLabelRe = regexp.MustCompile(`(\w+ \w+ \d+ \d+) from (\d+:?\d*[AP]M) until (\d+:?\d*[AP]M)`)

// GridSource scrapes a court's calendar grid page. Login is the caller's
// concern; the page is fetched as-is and only its markup is read.
type GridSource struct {
	client *http.Client
	name   string
	url    string
	loc    *time.Location
	now    func() time.Time
}

// NewGridSource builds a grid scraper for one court page.
func NewGridSource(name, url string, loc *time.Location) *GridSource {
	if loc == nil {
		loc = time.UTC
	}
	return &GridSource{
		client: &http.Client{Timeout: 30 * time.Second},
		name:   name,
		url:    url,
		loc:    loc,
		now:    time.Now,
	}
}

func (s *GridSource) Name() string {
	return s.name
}

func (s *GridSource) Fetch(ctx context.Context) (*Result, error) {
	result := &Result{FetchedAt: s.now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build grid request: %w", err)
	}
	req.Header.Set("User-Agent", icalUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		result.Status = StatusNetworkError
		result.Error = fmt.Sprintf("fetch grid page: %v", err)
		return result, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Status = StatusNetworkError
		result.Error = fmt.Sprintf("grid page returned status %d", resp.StatusCode)
		return result, nil
	}

	records, err := ParseGrid(resp.Body, s.name, s.loc)
	if err != nil {
		result.Status = StatusParseError
		result.Error = err.Error()
		return result, nil
	}
	result.Records = records
	if len(records) > 0 {
		result.Status = StatusSuccess
	} else {
		result.Status = StatusSuccessEmpty
	}
	return result, nil
}

// ParseGrid extracts reservation records from calendar grid markup. Every
// element carrying an aria-label of the grid's "<title>, <date> from
// <start> until <end>" shape yields one record; labels that do not parse
// are ignored rather than failing the page.
func ParseGrid(r io.Reader, source string, loc *time.Location) ([]engine.RawEvent, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse grid html: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	var records []engine.RawEvent
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key != "aria-label" || a.Val == "" {
					continue
				}
				if rec, ok := recordFromLabel(a.Val, source, loc); ok {
					records = append(records, rec)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return records, nil
}

func recordFromLabel(label, source string, loc *time.Location) (engine.RawEvent, bool) {
	m := gridLabelRe.FindStringSubmatch(label)
	if m == nil {
		return engine.RawEvent{}, false
	}
	date, err := engine.ParseDisplayDate(m[1])
	if err != nil {
		return engine.RawEvent{}, false
	}
	startHour, err := engine.ParseClock(m[2])
	if err != nil {
		return engine.RawEvent{}, false
	}
	endHour, err := engine.ParseClock(m[3])
	if err != nil {
		return engine.RawEvent{}, false
	}

	title := label
	if i := strings.Index(label, ","); i >= 0 {
		title = label[:i]
	}
	title = strings.TrimSpace(title)

	return engine.RawEvent{
		Title:  title,
		Start:  atHour(date, startHour, loc),
		End:    atHour(date, endHour, loc),
		Source: source,
	}, true
}

// atHour places a fractional hour on a calendar date in loc, at minute
// resolution.
func atHour(date engine.DateKey, hour float64, loc *time.Location) time.Time {
	minutes := int(math.Round(hour * 60))
	return time.Date(date.Year, date.Month, date.Day, 0, minutes, 0, 0, loc)
}
