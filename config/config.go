// Package config loads and validates the gap finder's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"eriehall.dev/gapfinder/engine"
)

// Config is the full runtime configuration.
type Config struct {
	Facility FacilityConfig `yaml:"facility"`
	Courts   []CourtConfig  `yaml:"courts"`
	Hours    HoursConfig    `yaml:"hours"`
	Classify []RuleConfig   `yaml:"classify"`

	MinGapHours float64 `yaml:"min_gap_hours"`
	WindowDays  int     `yaml:"window_days"`
	// PassDays is the sub-range each scrape pass covers; the window is
	// split into ceil(window/pass) passes that are merged afterwards.
	PassDays int `yaml:"pass_days"`

	Storage StorageConfig `yaml:"storage"`
	Web     WebConfig     `yaml:"web"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
}

type FacilityConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

type CourtConfig struct {
	Name string `yaml:"name"`
	// Kind selects the acquisition source: "ical" or "grid".
	Kind string `yaml:"kind"`
	URL  string `yaml:"url"`
}

// HoursConfig carries a flat open/close pair applied to every weekday, with
// optional per-weekday overrides.
type HoursConfig struct {
	Open     float64             `yaml:"open"`
	Close    float64             `yaml:"close"`
	Weekdays map[string]DayHours `yaml:"weekdays"`
}

type DayHours struct {
	Open  float64 `yaml:"open"`
	Close float64 `yaml:"close"`
}

type RuleConfig struct {
	Keyword string `yaml:"keyword"`
	Tag     string `yaml:"tag"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type ScrapeConfig struct {
	Interval time.Duration `yaml:"interval"`
	// ReportPath is where the rendered report JSON lands after each run.
	ReportPath string `yaml:"report_path"`
}

// weekday names accepted in hours.weekdays, Monday-first to match the
// operating table layout.
var weekdayIndex = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

// Load reads, defaults, and validates the configuration at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Facility.Timezone == "" {
		c.Facility.Timezone = "UTC"
	}
	if c.Hours.Open == 0 && c.Hours.Close == 0 {
		c.Hours.Open = 6
		c.Hours.Close = 23
	}
	if c.MinGapHours <= 0 {
		c.MinGapHours = engine.DefaultMinGapHours
	}
	if c.WindowDays <= 0 {
		c.WindowDays = engine.DefaultWindowDays
	}
	if c.PassDays <= 0 {
		c.PassDays = c.WindowDays
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./gapfinder.sqlite3"
	}
	if c.Web.Listen == "" {
		c.Web.Listen = ":8080"
	}
	if c.Scrape.Interval <= 0 {
		c.Scrape.Interval = 15 * time.Minute
	}
	if c.Scrape.ReportPath == "" {
		c.Scrape.ReportPath = "gaps.json"
	}
	for i := range c.Courts {
		if c.Courts[i].Kind == "" {
			c.Courts[i].Kind = "ical"
		}
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Facility.Name == "" {
		return fmt.Errorf("facility.name is required")
	}
	if _, err := time.LoadLocation(c.Facility.Timezone); err != nil {
		return fmt.Errorf("facility.timezone: %w", err)
	}
	if len(c.Courts) == 0 {
		return fmt.Errorf("at least one court is required")
	}
	for i, court := range c.Courts {
		if court.Name == "" {
			return fmt.Errorf("courts[%d].name is required", i)
		}
		if court.URL == "" {
			return fmt.Errorf("courts[%d].url is required", i)
		}
	}
	if err := validWindow(c.Hours.Open, c.Hours.Close, "hours"); err != nil {
		return err
	}
	for day, h := range c.Hours.Weekdays {
		if _, ok := weekdayIndex[strings.ToLower(day)]; !ok {
			return fmt.Errorf("hours.weekdays: unknown weekday %q", day)
		}
		if err := validWindow(h.Open, h.Close, "hours.weekdays."+day); err != nil {
			return err
		}
	}
	for i, r := range c.Classify {
		if strings.TrimSpace(r.Keyword) == "" {
			return fmt.Errorf("classify[%d].keyword is required", i)
		}
		if r.Tag == "" {
			return fmt.Errorf("classify[%d].tag is required", i)
		}
	}
	if c.PassDays > c.WindowDays {
		return fmt.Errorf("pass_days (%d) cannot exceed window_days (%d)", c.PassDays, c.WindowDays)
	}
	return nil
}

func validWindow(open, close float64, field string) error {
	if open < 0 || open >= 24 {
		return fmt.Errorf("%s.open %v out of range [0,24)", field, open)
	}
	if close <= open || close > 24 {
		return fmt.Errorf("%s.close %v must be in (open,24]", field, close)
	}
	return nil
}

// Location resolves the facility timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Facility.Timezone)
}

// OperatingTable builds the per-weekday table: the flat open/close pair
// everywhere, overridden where hours.weekdays names a day.
func (c *Config) OperatingTable() engine.OperatingTable {
	table := engine.FlatTable(c.Hours.Open, c.Hours.Close)
	for day, h := range c.Hours.Weekdays {
		if idx, ok := weekdayIndex[strings.ToLower(day)]; ok {
			table[idx] = engine.OperatingWindow{Open: h.Open, Close: h.Close}
		}
	}
	return table
}

// Rules converts the classification list into engine rules, preserving
// order; rule order decides ambiguous titles.
func (c *Config) Rules() []engine.Rule {
	rules := make([]engine.Rule, 0, len(c.Classify))
	for _, r := range c.Classify {
		rules = append(rules, engine.Rule{Keyword: r.Keyword, Tag: r.Tag})
	}
	return rules
}

// EngineConfig assembles the engine's immutable configuration.
func (c *Config) EngineConfig() (engine.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Location:    loc,
		Hours:       c.OperatingTable(),
		Rules:       c.Rules(),
		MinGapHours: c.MinGapHours,
		WindowDays:  c.WindowDays,
	}, nil
}
