// Package metrics exposes the gap finder's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gapfinder"

// Metrics holds every collector the runner and feed layer report into.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	FetchesTotal     *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
	SlotsFound       prometheus.Gauge
	LastSuccess      prometheus.Gauge
	RunDuration      prometheus.Summary
	ReportGeneration prometheus.Counter
}

// New registers all collectors with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed scrape runs by final status.",
		}, []string{"status"}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Feed fetches by court and result status.",
		}, []string{"court", "status"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Raw records dropped during normalization, by court.",
		}, []string{"court"}),
		SlotsFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots_found",
			Help:      "Slots rendered in the most recent report.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
		RunDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "run_duration_seconds",
			Help:       "Wall time of scrape runs.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		ReportGeneration: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_written_total",
			Help:      "Report files written to disk.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.FetchesTotal,
		m.RecordsSkipped,
		m.SlotsFound,
		m.LastSuccess,
		m.RunDuration,
		m.ReportGeneration,
	)
	return m
}
