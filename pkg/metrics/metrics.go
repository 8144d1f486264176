package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionComputations counts single-resource flag computations by
	// resource type and outcome (ok|not_found|error).
	PermissionComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildhall_permission_computations_total",
			Help: "Total number of permission flag computations",
		},
		[]string{"resource_type", "result"},
	)

	// BulkComputeDuration measures wall time of bulk permission batches.
	BulkComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildhall_bulk_compute_duration_seconds",
			Help:    "Duration of bulk permission computations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource_type"},
	)

	// BulkComputeBatchSize tracks the number of resources per bulk batch.
	BulkComputeBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guildhall_bulk_compute_batch_size",
			Help:    "Number of resources per bulk permission computation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// RollupRequests counts assignment rollup requests by resource type and
	// whether the result was redacted for the requesting actor.
	RollupRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildhall_rollup_requests_total",
			Help: "Total number of assignment rollup requests",
		},
		[]string{"resource_type", "redacted"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildhall_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
