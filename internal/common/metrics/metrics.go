// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookup_tasks_completed_total",
			Help: "Total number of lookup tasks completed successfully",
		},
	)

	TasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_tasks_failed_total",
			Help: "Total number of lookup tasks that ended in ERROR",
		},
		[]string{"error_code"},
	)

	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "lookup_call_duration_seconds",
			Help: "Duration of external lookup API calls in seconds",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookup_queue_pending_tasks",
			Help: "Number of tasks currently waiting in PENDING state",
		},
	)

	BatchesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookup_batches_processed_total",
			Help: "Total number of non-empty batches consumed by the worker",
		},
	)
)
