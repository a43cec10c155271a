// Package metrics defines the Prometheus instruments for plan generation,
// archive sync and draw fetching. They are served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rewired-gh/ssq-planner/internal/models"
)

const namespace = "ssq_planner"

var (
	// Plan generation

	// PlansGenerated counts generated plans by entry point (api, cli, sync).
	PlansGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_generated_total",
			Help:      "Total number of plans generated",
		},
		[]string{"source"},
	)

	// PlanDuration tracks plan generation latency.
	PlanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Duration of plan generation in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
	)

	// CoverageShortfall counts plans whose coverage selection stopped early.
	CoverageShortfall = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coverage_shortfall_total",
			Help:      "Plans whose coverage portfolio is smaller than requested",
		},
	)

	// Archive

	// ArchiveDraws is the number of draws currently stored.
	ArchiveDraws = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_draws",
			Help:      "Number of draws in the archive",
		},
	)

	// SyncRuns counts archive sync runs by result (ok, error).
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Total number of archive sync runs",
		},
		[]string{"result"},
	)

	// SyncNewDraws counts draws added by sync runs.
	SyncNewDraws = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_new_draws_total",
			Help:      "Total number of draws added by archive sync",
		},
	)

	// Fetching

	// FetchRequests counts draw API attempts by outcome (ok, retry, error, rejected).
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Total number of draw API requests",
		},
		[]string{"outcome"},
	)

	// FetchSkippedRecords counts malformed records dropped while parsing.
	FetchSkippedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_skipped_records_total",
			Help:      "Total number of malformed draw records skipped",
		},
	)

	// BreakerOpen is 1 while the fetch circuit breaker is open.
	BreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_breaker_open",
			Help:      "Whether the draw API circuit breaker is open",
		},
	)
)

// ObservePlan records one generated plan.
func ObservePlan(source string, plan *models.Plan, requestedCoverage int, elapsed time.Duration) {
	PlansGenerated.WithLabelValues(source).Inc()
	PlanDuration.Observe(elapsed.Seconds())
	if plan != nil && len(plan.Coverage) < requestedCoverage {
		CoverageShortfall.Inc()
	}
}

// ObserveSync records one archive sync run.
func ObserveSync(added, total int, err error) {
	if err != nil {
		SyncRuns.WithLabelValues("error").Inc()
		return
	}
	SyncRuns.WithLabelValues("ok").Inc()
	SyncNewDraws.Add(float64(added))
	ArchiveDraws.Set(float64(total))
}
