// Package feed acquires raw reservation records for the engine. Sources
// wrap the two acquisition paths the facility calendar exposes: an iCal
// feed per court and the calendar grid page HTML. The engine itself never
// touches the network; everything that does lives here.
package feed

import (
	"context"
	"fmt"
	"time"

	"eriehall.dev/gapfinder/engine"
)

// Status codes for fetch results.
const (
	StatusSuccess      = "success"
	StatusSuccessEmpty = "success_no_records"
	StatusNetworkError = "network_error"
	StatusParseError   = "parse_error"
)

// Result is the outcome of one fetch: the raw records plus enough status
// detail for run bookkeeping.
type Result struct {
	Status    string
	Error     string
	Records   []engine.RawEvent
	FetchedAt time.Time
}

// Source fetches reservation records for one court.
type Source interface {
	// Fetch retrieves the current record set. Transport failures are
	// reported in the Result status; err is reserved for unrecoverable
	// misuse (nil context, bad URL).
	Fetch(ctx context.Context) (*Result, error)
	// Name returns the court or feed identifier carried on the records.
	Name() string
}

// Factory builds a source for a named court from its feed URL.
type Factory func(name, url string, loc *time.Location) (Source, error)

// Registry maps source kinds to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in source kinds.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("ical", func(name, url string, loc *time.Location) (Source, error) {
		return NewICalSource(name, url, loc), nil
	})
	r.Register("grid", func(name, url string, loc *time.Location) (Source, error) {
		return NewGridSource(name, url, loc), nil
	})
	return r
}

// Register adds a source kind.
func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// Build constructs a source of the given kind.
func (r *Registry) Build(kind, name, url string, loc *time.Location) (Source, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
	return f(name, url, loc)
}

// Kinds returns the registered source kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	return kinds
}
