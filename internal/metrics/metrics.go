package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rule execution
var (
	// RuleResultsTotal counts rule results per entry point, trigger, action and outcome.
	RuleResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_rule_results_total",
			Help: "Automation rule results by source, trigger, action and status",
		},
		[]string{"source", "trigger_type", "action_type", "status"},
	)

	// RunDuration is the wall time of one dispatch or scheduler run.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_run_duration_seconds",
			Help:    "Duration of automation runs by source",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	// RunFailuresTotal counts runs that failed before producing a report.
	RunFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_run_failures_total",
			Help: "Automation runs that failed with a top-level error",
		},
		[]string{"source"},
	)
)

// Scheduler
var (
	// ScanCandidatesTotal counts projects or invoices that were due on a scan.
	ScanCandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_scan_candidates_total",
			Help: "Projects or invoices found due by the schedulers",
		},
		[]string{"source"},
	)

	// EventsReceivedTotal counts dispatch requests received from the message bus.
	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_events_received_total",
			Help: "Dispatch events received over NATS by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordResult increments the result counter.
func RecordResult(source, triggerType, actionType, status string) {
	RuleResultsTotal.WithLabelValues(source, triggerType, actionType, status).Inc()
}

// ObserveRun records how long a run took.
func ObserveRun(source string, start time.Time) {
	RunDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// RecordRunFailure marks a run that returned an error.
func RecordRunFailure(source string) {
	RunFailuresTotal.WithLabelValues(source).Inc()
}

// RecordCandidate counts one due scan item.
func RecordCandidate(source string) {
	ScanCandidatesTotal.WithLabelValues(source).Inc()
}

// RecordEvent counts one NATS event by outcome (dispatched, invalid, failed).
func RecordEvent(outcome string) {
	EventsReceivedTotal.WithLabelValues(outcome).Inc()
}
