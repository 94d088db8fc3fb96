package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"eriehall.dev/gapfinder/engine"
)

const sampleYAML = `
facility:
  name: Erie Hall
  timezone: America/New_York
courts:
  - name: Court 1
    kind: ical
    url: https://calendar.example.test/feeds/6451.ics
  - name: Court 2
    url: https://calendar.example.test/feeds/6452.ics
hours:
  open: 6
  close: 23
  weekdays:
    saturday: {open: 8, close: 20}
    sunday: {open: 10, close: 18}
classify:
  - keyword: badminton
    tag: Badminton
  - keyword: open rec
    tag: Open Rec
min_gap_hours: 1.0
window_days: 14
pass_days: 7
storage:
  path: /tmp/test.sqlite3
web:
  enabled: true
  listen: ":9090"
scrape:
  interval: 30m
  report_path: out/gaps.json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Facility.Name != "Erie Hall" {
		t.Errorf("facility name = %q", cfg.Facility.Name)
	}
	if len(cfg.Courts) != 2 {
		t.Fatalf("got %d courts, want 2", len(cfg.Courts))
	}
	if cfg.Courts[1].Kind != "ical" {
		t.Errorf("court kind default = %q, want ical", cfg.Courts[1].Kind)
	}
	if cfg.WindowDays != 14 || cfg.PassDays != 7 {
		t.Errorf("window/pass = %d/%d, want 14/7", cfg.WindowDays, cfg.PassDays)
	}
	if cfg.Scrape.Interval != 30*time.Minute {
		t.Errorf("interval = %v", cfg.Scrape.Interval)
	}
	if cfg.Scrape.ReportPath != "out/gaps.json" {
		t.Errorf("report path = %q", cfg.Scrape.ReportPath)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("location = %v", loc)
	}
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
facility:
  name: Erie Hall
courts:
  - name: Court 1
    url: https://calendar.example.test/feeds/1.ics
`
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Facility.Timezone != "UTC" {
		t.Errorf("timezone default = %q", cfg.Facility.Timezone)
	}
	if cfg.Hours.Open != 6 || cfg.Hours.Close != 23 {
		t.Errorf("hours default = %v-%v, want 6-23", cfg.Hours.Open, cfg.Hours.Close)
	}
	if cfg.MinGapHours != engine.DefaultMinGapHours {
		t.Errorf("min gap default = %v", cfg.MinGapHours)
	}
	if cfg.WindowDays != engine.DefaultWindowDays {
		t.Errorf("window default = %d", cfg.WindowDays)
	}
	if cfg.PassDays != cfg.WindowDays {
		t.Errorf("pass days default = %d, want window size", cfg.PassDays)
	}
	if cfg.Web.Listen != ":8080" {
		t.Errorf("listen default = %q", cfg.Web.Listen)
	}
	if cfg.Scrape.Interval != 15*time.Minute {
		t.Errorf("interval default = %v", cfg.Scrape.Interval)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing facility name",
			body: "courts:\n  - name: C\n    url: u\n",
		},
		{
			name: "bad timezone",
			body: "facility:\n  name: F\n  timezone: Mars/Olympus\ncourts:\n  - name: C\n    url: u\n",
		},
		{
			name: "no courts",
			body: "facility:\n  name: F\n",
		},
		{
			name: "court without url",
			body: "facility:\n  name: F\ncourts:\n  - name: C\n",
		},
		{
			name: "close before open",
			body: "facility:\n  name: F\ncourts:\n  - name: C\n    url: u\nhours:\n  open: 10\n  close: 8\n",
		},
		{
			name: "unknown weekday",
			body: "facility:\n  name: F\ncourts:\n  - name: C\n    url: u\nhours:\n  open: 6\n  close: 23\n  weekdays:\n    caturday: {open: 1, close: 2}\n",
		},
		{
			name: "rule without tag",
			body: "facility:\n  name: F\ncourts:\n  - name: C\n    url: u\nclassify:\n  - keyword: k\n",
		},
		{
			name: "pass longer than window",
			body: "facility:\n  name: F\ncourts:\n  - name: C\n    url: u\nwindow_days: 7\npass_days: 10\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestOperatingTable(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	table := cfg.OperatingTable()

	// Monday..Friday keep the flat pair
	for i := 0; i < 5; i++ {
		if table[i].Open != 6 || table[i].Close != 23 {
			t.Errorf("weekday %d = %+v, want 6-23", i, table[i])
		}
	}
	if table[5].Open != 8 || table[5].Close != 20 {
		t.Errorf("saturday = %+v, want 8-20", table[5])
	}
	if table[6].Open != 10 || table[6].Close != 18 {
		t.Errorf("sunday = %+v, want 10-18", table[6])
	}
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig() error = %v", err)
	}
	if len(ec.Rules) != 2 || ec.Rules[0].Tag != "Badminton" || ec.Rules[1].Tag != "Open Rec" {
		t.Errorf("rules = %+v, order must be preserved", ec.Rules)
	}
	if ec.WindowDays != 14 {
		t.Errorf("window days = %d", ec.WindowDays)
	}
	if ec.Location == nil || ec.Location.String() != "America/New_York" {
		t.Errorf("location = %v", ec.Location)
	}
}
