// Package gapfinder orchestrates the scrape pipeline: fetch each court's
// feed, run the engine over the report window in passes, merge, persist,
// and publish.
package gapfinder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"eriehall.dev/gapfinder/config"
	"eriehall.dev/gapfinder/engine"
	"eriehall.dev/gapfinder/feed"
	"eriehall.dev/gapfinder/metrics"
	"eriehall.dev/gapfinder/storage"
	"eriehall.dev/gapfinder/web"
)

const (
	fetchAttempts = 3
	fetchBackoff  = 2 * time.Second
)

// Runner drives one facility's scrape cycle. Store, Metrics, and Server are
// optional; a nil field disables that integration.
type Runner struct {
	cfg     *config.Config
	eng     *engine.Engine
	sources []feed.Source
	loc     *time.Location

	Store   *storage.Store
	Metrics *metrics.Metrics
	Server  *web.Server

	now func() time.Time
}

// NewRunner builds the engine and one source per configured court.
func NewRunner(cfg *config.Config) (*Runner, error) {
	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	registry := feed.NewRegistry()
	sources := make([]feed.Source, 0, len(cfg.Courts))
	for _, court := range cfg.Courts {
		src, err := registry.Build(court.Kind, court.Name, court.URL, ec.Location)
		if err != nil {
			return nil, fmt.Errorf("court %q: %w", court.Name, err)
		}
		sources = append(sources, src)
	}

	return &Runner{
		cfg:     cfg,
		eng:     engine.New(ec),
		sources: sources,
		loc:     ec.Location,
		now:     time.Now,
	}, nil
}

// RunOnce performs one full scrape cycle and returns the rendered report.
func (r *Runner) RunOnce(ctx context.Context) (*engine.Report, error) {
	started := r.now()
	runID := r.beginRun(ctx)

	today := engine.DateKeyOf(started.In(r.loc))
	rep := engine.NewReport(started)

	fetched := 0
	totalSkipped := 0
	for _, src := range r.sources {
		result := r.fetchWithRetry(ctx, src)
		if r.Metrics != nil {
			r.Metrics.FetchesTotal.WithLabelValues(src.Name(), result.Status).Inc()
		}
		if result.Status == feed.StatusNetworkError || result.Status == feed.StatusParseError {
			slog.Warn("feed fetch failed", "court", src.Name(), "status", result.Status, "error", result.Error)
			continue
		}
		fetched++

		sched, skipped := r.buildSchedule(result.Records, today)
		totalSkipped += skipped
		if r.Metrics != nil && skipped > 0 {
			r.Metrics.RecordsSkipped.WithLabelValues(src.Name()).Add(float64(skipped))
		}
		rep.AddCourt(src.Name(), sched)
	}

	if fetched == 0 {
		err := fmt.Errorf("no court feed could be fetched")
		r.finishRun(ctx, runID, storage.StatusFailed, 0, totalSkipped, err.Error())
		if r.Metrics != nil {
			r.Metrics.RunsTotal.WithLabelValues(storage.StatusFailed).Inc()
		}
		return nil, err
	}

	slots := rep.TotalSlots()
	r.finishRun(ctx, runID, storage.StatusCompleted, slots, totalSkipped, "")
	if r.Store != nil && runID != "" {
		if _, err := r.Store.SaveReport(ctx, runID, rep); err != nil {
			slog.Warn("failed to persist report", "error", err)
		}
	}

	if r.Server != nil {
		if err := r.Server.Publish(rep); err != nil {
			slog.Warn("failed to publish report", "error", err)
		}
	}
	if r.cfg.Scrape.ReportPath != "" {
		if err := r.WriteReportFile(rep, r.cfg.Scrape.ReportPath); err != nil {
			slog.Warn("failed to write report file", "path", r.cfg.Scrape.ReportPath, "error", err)
		} else if r.Metrics != nil {
			r.Metrics.ReportGeneration.Inc()
		}
	}

	if r.Metrics != nil {
		r.Metrics.RunsTotal.WithLabelValues(storage.StatusCompleted).Inc()
		r.Metrics.SlotsFound.Set(float64(slots))
		r.Metrics.LastSuccess.Set(float64(r.now().Unix()))
		r.Metrics.RunDuration.Observe(r.now().Sub(started).Seconds())
	}

	slog.Info("run completed",
		"courts", fetched,
		"slots", slots,
		"skipped", totalSkipped,
		"duration", r.now().Sub(started).Round(time.Millisecond),
	)
	return rep, nil
}

// buildSchedule splits the report window into pass-sized sub-ranges, runs
// the engine over each, and merges the passes back together. Later passes
// win on overlapping dates.
func (r *Runner) buildSchedule(records []engine.RawEvent, today engine.DateKey) (engine.MergedSchedule, int) {
	windowDays := r.eng.WindowDays()
	passDays := r.cfg.PassDays
	if passDays <= 0 || passDays > windowDays {
		passDays = windowDays
	}

	var passes []engine.PassResult
	for offset := 0; offset < windowDays; offset += passDays {
		from := today.AddDays(offset)
		days := passDays
		if offset+days > windowDays {
			days = windowDays - offset
		}
		to := from.AddDays(days - 1)

		var subset []engine.RawEvent
		for _, rec := range records {
			d := engine.DateKeyOf(rec.Start.In(r.loc))
			if !d.Before(from) && !to.Before(d) {
				subset = append(subset, rec)
			}
		}
		passes = append(passes, r.eng.RunPass(subset, from, to))
	}

	merged := engine.Merge(passes...)
	skipped := merged.Skipped
	return merged.Window(today, windowDays), skipped
}

// fetchWithRetry retries transient fetch failures with a fixed backoff.
// Parse errors are not retried; the page will not change between attempts.
func (r *Runner) fetchWithRetry(ctx context.Context, src feed.Source) *feed.Result {
	var result *feed.Result
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		res, err := src.Fetch(ctx)
		if err != nil {
			return &feed.Result{Status: feed.StatusNetworkError, Error: err.Error()}
		}
		result = res
		if res.Status != feed.StatusNetworkError {
			return res
		}
		if attempt < fetchAttempts {
			slog.Debug("retrying fetch", "court", src.Name(), "attempt", attempt)
			select {
			case <-ctx.Done():
				return result
			case <-time.After(fetchBackoff):
			}
		}
	}
	return result
}

// WriteReportFile renders rep to path atomically via a temp file rename.
func (r *Runner) WriteReportFile(rep *engine.Report, path string) error {
	body, err := rep.Encode()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Start runs a cycle immediately, then on every tick until ctx is
// cancelled.
func (r *Runner) Start(ctx context.Context) error {
	if _, err := r.RunOnce(ctx); err != nil {
		slog.Error("initial run failed", "error", err)
	}

	ticker := time.NewTicker(r.cfg.Scrape.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				slog.Error("run failed", "error", err)
			}
		}
	}
}

func (r *Runner) beginRun(ctx context.Context) string {
	if r.Store == nil {
		return ""
	}
	id, err := r.Store.CreateRun(ctx)
	if err != nil {
		slog.Warn("failed to record run", "error", err)
		return ""
	}
	if err := r.Store.UpdateRun(ctx, id, storage.StatusRunning, 0, 0, ""); err != nil {
		slog.Warn("failed to mark run running", "error", err)
	}
	return id
}

func (r *Runner) finishRun(ctx context.Context, runID, status string, slots, skipped int, errMsg string) {
	if r.Store == nil || runID == "" {
		return
	}
	if err := r.Store.UpdateRun(ctx, runID, status, slots, skipped, errMsg); err != nil {
		slog.Warn("failed to finish run", "error", err)
	}
}
