package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squarewire_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "squarewire_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Action metrics
	Actions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squarewire_actions_total",
			Help: "Total gateway actions dispatched",
		},
		[]string{"action", "outcome"}, // outcome: "ok", "auth", "error"
	)

	// Session metrics
	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squarewire_logins_total",
			Help: "Total platform logins",
		},
		[]string{"mode"}, // "access" or "refresh"
	)

	LoginFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "squarewire_login_failures_total",
			Help: "Total failed platform logins",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "squarewire_active_sessions",
			Help: "Live cached platform sessions",
		},
	)

	TokenRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squarewire_token_rotations_total",
			Help: "Total credential rotations observed",
		},
		[]string{"kind"}, // "access" or "refresh"
	)

	SessionEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "squarewire_session_evictions_total",
			Help: "Sessions evicted after authentication failures",
		},
	)

	// Enrichment metrics
	ProfileResolveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "squarewire_profile_resolve_failures_total",
			Help: "Bulk membership lookups that failed during enrichment",
		},
	)

	AttachmentFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "squarewire_attachment_failures_total",
			Help: "Attachment fetches that failed during enrichment",
		},
	)

	AttachmentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "squarewire_attachment_fetch_duration_seconds",
			Help:    "Attachment fetch latency",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squarewire_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squarewire_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)
)
