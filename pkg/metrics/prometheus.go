// Package metrics provides Prometheus metrics for the attendance and
// scouting service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "nautilus"
)

// Core business metrics.
var (
	checkinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkins_total",
		Help:      "Check-in attempts by outcome.",
	}, []string{"outcome"})

	checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Check-out attempts by outcome.",
	}, []string{"outcome"})

	hoursCredited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hours_credited_total",
		Help:      "Total credited hours across all members.",
	})

	zeroCredits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "zero_credit_total",
		Help:      "Completed attendances below the rounding increment.",
	})

	meetingsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "meetings_closed_total",
		Help:      "Meetings transitioned to closed.",
	})

	recordsVoided = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_voided_total",
		Help:      "Attendance records voided at meeting close.",
	})

	reportsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scouting_reports_total",
		Help:      "Scouting reports accepted.",
	})

	reportsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scouting_reports_duplicate_total",
		Help:      "Scouting report submissions rejected as duplicates.",
	})

	aggregateRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregate_recomputes_total",
		Help:      "Full aggregate recomputations performed.",
	})

	disputedAggregates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregates_disputed_total",
		Help:      "Aggregates flagged disputed after a recompute.",
	})

	pitUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pit_entry_updates_total",
		Help:      "Pit scouting entries created or updated.",
	})

	pitConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pit_entry_conflicts_total",
		Help:      "Pit scouting submissions rejected as stale.",
	})
)

// Operational health metrics.
var (
	queueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_size",
		Help:      "Current number of queued reconciliation jobs.",
	})

	queueCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_capacity",
		Help:      "Configured job queue capacity.",
	})

	queueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_dropped_total",
		Help:      "Jobs rejected because the queue was full or closed.",
	})

	workerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "worker_job_duration_ms",
		Help:      "Job processing latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	workerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_errors_total",
		Help:      "Jobs that failed during processing.",
	})
)

// HTTP metrics.
var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"endpoint", "method"})
)

// RecordCheckIn records a check-in attempt with its outcome label
// (accepted, out_of_window, already_checked_in, ...).
func RecordCheckIn(outcome string) { checkinsTotal.WithLabelValues(outcome).Inc() }

// RecordCheckOut records a check-out attempt with its outcome label.
func RecordCheckOut(outcome string) { checkoutsTotal.WithLabelValues(outcome).Inc() }

// RecordHoursCredited adds credited hours to the running total.
func RecordHoursCredited(hours float64) { hoursCredited.Add(hours) }

// RecordZeroCredit records a completed attendance that credited zero hours.
func RecordZeroCredit() { zeroCredits.Inc() }

// RecordMeetingClosed records a meeting close.
func RecordMeetingClosed() { meetingsClosed.Inc() }

// RecordVoided records n attendance records voided at meeting close.
func RecordVoided(n int) { recordsVoided.Add(float64(n)) }

// RecordReportAccepted records an accepted scouting report.
func RecordReportAccepted() { reportsAccepted.Inc() }

// RecordReportDuplicate records a duplicate scouting report submission.
func RecordReportDuplicate() { reportsDuplicate.Inc() }

// RecordAggregateRecompute records a full aggregate recomputation.
func RecordAggregateRecompute() { aggregateRecomputes.Inc() }

// RecordDisputedAggregate records an aggregate flagged disputed.
func RecordDisputedAggregate() { disputedAggregates.Inc() }

// RecordPitUpdate records a pit entry create or update.
func RecordPitUpdate() { pitUpdates.Inc() }

// RecordPitConflict records a stale pit submission rejection.
func RecordPitConflict() { pitConflicts.Inc() }

// UpdateQueueSize sets the current queue size gauge.
func UpdateQueueSize(n int) { queueSize.Set(float64(n)) }

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(n int) { queueCapacity.Set(float64(n)) }

// RecordQueueDrop records a rejected enqueue.
func RecordQueueDrop() { queueDropped.Inc() }

// RecordWorkerLatency records job processing latency in milliseconds.
func RecordWorkerLatency(ms float64) { workerLatency.Observe(ms) }

// RecordWorkerError records a failed job.
func RecordWorkerError() { workerErrors.Inc() }

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records HTTP latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	httpDuration.WithLabelValues(endpoint, method).Observe(ms)
}
