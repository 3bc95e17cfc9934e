// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlomap_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mlomap_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ClaimTransitions counts claim wizard outcomes. transition is
	// request_pin, verify_pin or reset; outcome is ok or an error code.
	ClaimTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlomap_claim_transitions_total",
			Help: "Listing claim transitions by outcome",
		},
		[]string{"transition", "outcome"},
	)

	ExternalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlomap_external_requests_total",
			Help: "Outbound API calls by service, operation and outcome",
		},
		[]string{"service", "operation", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mlomap_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	ForumSyncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mlomap_forum_sync_queue_depth",
			Help: "Pending forum sync jobs",
		},
	)

	ForumSyncJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlomap_forum_sync_jobs_total",
			Help: "Forum sync jobs by outcome (created, updated, archived, skipped, dropped, error)",
		},
		[]string{"outcome"},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlomap_uploads_total",
			Help: "Image uploads by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)
