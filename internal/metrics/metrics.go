// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardRejectionsTotal counts requests refused by the injection guard.
	GuardRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scopedrest_guard_rejections_total",
			Help: "Requests rejected by the injection guard, by signature",
		},
		[]string{"signature"},
	)

	// AuthorizationDenialsTotal counts class-level denials.
	AuthorizationDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scopedrest_authorization_denials_total",
			Help: "Requests denied by the policy engine, by resource",
		},
		[]string{"resource"},
	)

	// AuditDispatchTotal counts audit records by how they were persisted.
	AuditDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scopedrest_audit_dispatch_total",
			Help: "Audit records by outcome (queued, written, dropped)",
		},
		[]string{"outcome"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scopedrest_query_duration_seconds",
			Help:    "Duration of resource queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"resource", "phase"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scopedrest_rate_limited_total",
			Help: "Requests refused by the per-key rate limiter",
		},
	)
)

func RecordGuardRejection(signature string) {
	GuardRejectionsTotal.WithLabelValues(signature).Inc()
}

func RecordAuthorizationDenial(resource string) {
	AuthorizationDenialsTotal.WithLabelValues(resource).Inc()
}

func RecordAuditDispatch(outcome string) {
	AuditDispatchTotal.WithLabelValues(outcome).Inc()
}

// ObserveQuery records the time since start for one query phase
// ("count", "find", "locate").
func ObserveQuery(resource, phase string, start time.Time) {
	QueryDuration.WithLabelValues(resource, phase).Observe(time.Since(start).Seconds())
}

func RecordRateLimited() {
	RateLimitedTotal.Inc()
}
