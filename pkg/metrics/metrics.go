package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthorizationDecisions counts decision engine outcomes by requirement and result (allow|deny|error).
	AuthorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobhive_authorization_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"requirement", "result"},
	)

	// ScopeResolutions counts company scope resolutions by outcome (all|company|no_company|ambiguous).
	ScopeResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobhive_scope_resolutions_total",
			Help: "Total number of company scope resolutions",
		},
		[]string{"outcome"},
	)

	// ScopeDenials counts by-ID accesses rejected for falling outside the caller's company.
	ScopeDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobhive_scope_denials_total",
			Help: "Total number of resource accesses denied by company scope",
		},
		[]string{"entity"},
	)

	// AuditWriteFailures counts audit events that could not be persisted.
	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobhive_audit_write_failures_total",
			Help: "Audit events dropped because the sink failed",
		},
	)

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobhive_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"path"},
	)

	// MaintenanceRuns counts background job runs by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobhive_maintenance_runs_total",
			Help: "Background maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobhive_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
