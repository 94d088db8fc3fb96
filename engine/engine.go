package engine

import "time"

// DefaultWindowDays is the target report span.
const DefaultWindowDays = 7

// Config carries the immutable knobs the engine is built with. Passing the
// configuration in explicitly keeps multiple engines independently testable
// and safe to run concurrently.
type Config struct {
	// Location is the facility's local timezone; nil means UTC.
	Location *time.Location
	// Hours is the per-weekday operating table.
	Hours OperatingTable
	// Rules are the ordered keyword->tag classification rules.
	Rules []Rule
	// MinGapHours drops free intervals shorter than this; <=0 means the
	// 1.0 hour default.
	MinGapHours float64
	// WindowDays is the report span; <=0 means the 7 day default.
	WindowDays int
}

// Engine is the pure batch transformation at the core of the gap finder.
// It holds no mutable state across invocations; RunPass may be called from
// multiple goroutines.
type Engine struct {
	norm       *Normalizer
	gaps       GapCalculator
	classifier *Classifier
	windowDays int
}

// New builds an engine from cfg, applying defaults.
func New(cfg Config) *Engine {
	days := cfg.WindowDays
	if days <= 0 {
		days = DefaultWindowDays
	}
	return &Engine{
		norm:       NewNormalizer(cfg.Location),
		gaps:       NewGapCalculator(cfg.Hours, cfg.MinGapHours),
		classifier: NewClassifier(cfg.Rules),
		windowDays: days,
	}
}

// WindowDays returns the configured report span in days.
func (e *Engine) WindowDays() int {
	return e.windowDays
}

// RunPass transforms one scrape pass's raw records. Records are normalized
// and bucketed per local date, classified against the keyword rules, and
// each date's free intervals are computed. Malformed records are dropped and
// counted, never fatal. When from/to are non-zero they give the inclusive
// date range the pass covered: dates in range with no reservations yield a
// full-day gap instead of being absent.
func (e *Engine) RunPass(records []RawEvent, from, to DateKey) PassResult {
	result := PassResult{Gaps: make(map[DateKey][]GapInterval)}

	buckets := make(map[DateKey][]NormalizedEvent)
	for _, rec := range records {
		norm, err := e.norm.Normalize(rec)
		if err != nil {
			result.Skipped++
			continue
		}
		buckets[norm.Date] = append(buckets[norm.Date], norm)
		if ev, ok := e.classifier.Classify(rec, norm); ok {
			result.Events = append(result.Events, ev)
		}
	}

	if !from.IsZero() && !to.IsZero() {
		for d := from; !to.Before(d); d = d.AddDays(1) {
			if _, ok := buckets[d]; !ok {
				buckets[d] = nil
			}
		}
	}

	for date, events := range buckets {
		result.Gaps[date] = e.gaps.DayGaps(date, events)
	}
	return result
}
