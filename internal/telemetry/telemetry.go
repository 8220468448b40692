// Package telemetry exposes Prometheus metrics for sync runs.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botcsync_fetches_total",
			Help: "Total wiki fetches, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	fetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "botcsync_fetch_retries_total",
			Help: "Total fetch retry attempts.",
		},
	)

	stalenessDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botcsync_staleness_decisions_total",
			Help: "Staleness decisions, labeled by field class and decision.",
		},
		[]string{"class", "decision"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botcsync_runs_total",
			Help: "Completed sync runs, labeled by result.",
		},
		[]string{"result"},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "botcsync_run_duration_seconds",
			Help:    "Histogram of whole-run durations.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// ObserveFetch records one fetch outcome.
func ObserveFetch(outcome string) {
	fetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRetry records one retry attempt.
func ObserveRetry() {
	fetchRetriesTotal.Inc()
}

// ObserveStaleness records one staleness decision.
func ObserveStaleness(class, decision string) {
	stalenessDecisionsTotal.WithLabelValues(class, decision).Inc()
}

// ObserveRun records a finished run and its duration.
func ObserveRun(result string, duration time.Duration) {
	runsTotal.WithLabelValues(result).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}
