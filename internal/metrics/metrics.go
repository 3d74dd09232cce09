// Package metrics defines Prometheus metrics for the findings API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search metrics
var (
	// SearchesTotal tracks search executions by resource and strategy.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total number of search queries by resource and execution strategy",
		},
		[]string{"resource", "strategy"},
	)

	// FallbackScansTotal tracks searches that planned onto the all-records
	// fallback index. Low filter selectivity here degrades silently to a
	// marker-partition scan, so this is the alerting hook for it.
	FallbackScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_fallback_scans_total",
			Help: "Total number of searches served by the all-records fallback index",
		},
		[]string{"resource"},
	)

	// InMemorySortsTotal tracks searches whose sort field required draining
	// and re-sorting in memory.
	InMemorySortsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_in_memory_sorts_total",
			Help: "Total number of searches re-sorted in memory",
		},
		[]string{"resource"},
	)
)

// Action metrics
var (
	// ActionsTotal tracks finding actions by type and result.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finding_actions_total",
			Help: "Total number of finding actions by type and result",
		},
		[]string{"action", "result"},
	)

	// ExportsTotal tracks exports by completion status.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finding_exports_total",
			Help: "Total number of finding exports by status",
		},
		[]string{"status"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)
