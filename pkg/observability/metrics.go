package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics emitted by the console client
type Metrics struct {
	// Outbound HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Token lifecycle metrics
	TokenRefreshTotal        *prometheus.CounterVec
	SessionTerminationsTotal *prometheus.CounterVec

	// Permission resolver metrics
	PermissionChecksTotal *prometheus.CounterVec
	PermissionCacheHits   prometheus.Counter
	PermissionCacheMisses prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagegate_http_requests_total",
				Help: "Total number of outbound HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagegate_http_request_duration_seconds",
				Help:    "Outbound HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TokenRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagegate_token_refresh_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"trigger", "outcome"},
		),
		SessionTerminationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagegate_session_terminations_total",
				Help: "Total number of forced session terminations",
			},
			[]string{"reason"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagegate_permission_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"action", "allowed"},
		),
		PermissionCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagegate_permission_cache_hits_total",
				Help: "Permission check results served from cache",
			},
		),
		PermissionCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagegate_permission_cache_misses_total",
				Help: "Permission checks evaluated against the grant table",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.TokenRefreshTotal,
			m.SessionTerminationsTotal,
			m.PermissionChecksTotal,
			m.PermissionCacheHits,
			m.PermissionCacheMisses,
		)
	}

	return m
}

// ObserveRequest records one outbound request
func (m *Metrics) ObserveRequest(method, path string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// ObserveRefresh records a token refresh attempt
func (m *Metrics) ObserveRefresh(trigger string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.TokenRefreshTotal.WithLabelValues(trigger, outcome).Inc()
}

// ObserveTermination records a forced session termination
func (m *Metrics) ObserveTermination(reason string) {
	if m == nil {
		return
	}
	m.SessionTerminationsTotal.WithLabelValues(reason).Inc()
}

// ObserveCheck records a permission check result
func (m *Metrics) ObserveCheck(action string, allowed bool) {
	if m == nil {
		return
	}
	m.PermissionChecksTotal.WithLabelValues(action, strconv.FormatBool(allowed)).Inc()
}
