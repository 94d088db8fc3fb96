package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleGrid = `<!DOCTYPE html>
<html><body>
<div class="calendar">
  <div class="grid--item" aria-label="Badminton Open Play, Mon Jan 19 2026 from 6:00PM until 8:00PM">BOP</div>
  <div class="grid--item" aria-label="Intramural Volleyball, Mon Jan 19 2026 from 9:05AM until 10AM">IV</div>
  <div class="grid--item" aria-label="decorative element"></div>
  <button aria-label="Next Week"></button>
  <div class="grid--item" aria-label="Club Practice, Tue Jan 20 2026 from 2PM until 4PM">CP</div>
</div>
</body></html>`

func TestParseGrid(t *testing.T) {
	eastern, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	records, err := ParseGrid(strings.NewReader(sampleGrid), "Court 1", eastern)
	if err != nil {
		t.Fatalf("ParseGrid() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3: %+v", len(records), records)
	}

	first := records[0]
	if first.Title != "Badminton Open Play" {
		t.Errorf("Title = %q", first.Title)
	}
	wantStart := time.Date(2026, time.January, 19, 18, 0, 0, 0, eastern)
	if !first.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", first.Start, wantStart)
	}
	wantEnd := time.Date(2026, time.January, 19, 20, 0, 0, 0, eastern)
	if !first.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", first.End, wantEnd)
	}
	if first.Source != "Court 1" {
		t.Errorf("Source = %q", first.Source)
	}

	second := records[1]
	if !second.Start.Equal(time.Date(2026, time.January, 19, 9, 5, 0, 0, eastern)) {
		t.Errorf("minute-resolution start = %v", second.Start)
	}
	if !second.End.Equal(time.Date(2026, time.January, 19, 10, 0, 0, 0, eastern)) {
		t.Errorf("no-minutes end = %v", second.End)
	}

	third := records[2]
	if third.Title != "Club Practice" {
		t.Errorf("Title = %q", third.Title)
	}
	if !third.Start.Equal(time.Date(2026, time.January, 20, 14, 0, 0, 0, eastern)) {
		t.Errorf("Start = %v", third.Start)
	}
}

func TestParseGridIgnoresUnrelatedLabels(t *testing.T) {
	page := `<div aria-label="Close dialog"><span aria-label="something else"></span></div>`
	records, err := ParseGrid(strings.NewReader(page), "Court 1", time.UTC)
	if err != nil {
		t.Fatalf("ParseGrid() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestGridSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleGrid))
	}))
	defer srv.Close()

	src := NewGridSource("Court 2", srv.URL, time.UTC)
	result, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("Status = %q (%s)", result.Status, result.Error)
	}
	if len(result.Records) != 3 {
		t.Errorf("got %d records, want 3", len(result.Records))
	}
	for _, rec := range result.Records {
		if rec.Source != "Court 2" {
			t.Errorf("Source = %q, want Court 2", rec.Source)
		}
	}
}

func TestGridSourceFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewGridSource("Court 2", srv.URL, time.UTC)
	result, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Status != StatusNetworkError {
		t.Errorf("Status = %q, want network_error", result.Status)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, kind := range []string{"ical", "grid"} {
		src, err := r.Build(kind, "Court 1", "http://example.test/feed", time.UTC)
		if err != nil {
			t.Errorf("Build(%q) error = %v", kind, err)
			continue
		}
		if src.Name() != "Court 1" {
			t.Errorf("Build(%q).Name() = %q", kind, src.Name())
		}
	}

	if _, err := r.Build("carrier-pigeon", "Court 1", "", time.UTC); err == nil {
		t.Error("expected error for unknown kind")
	}

	if got := len(r.Kinds()); got != 2 {
		t.Errorf("Kinds() has %d entries, want 2", got)
	}
}
