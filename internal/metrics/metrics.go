// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors.  A nil *Metrics is valid and records
// nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	AuthEventsTotal       *prometheus.CounterVec
	AuthzDeniedTotal      *prometheus.CounterVec
	RateLimitedTotal      *prometheus.CounterVec
	ConnectionEventsTotal *prometheus.CounterVec
	CacheResultsTotal     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates and registers all collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrimony_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matrimony_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrimony_auth_events_total",
				Help: "Authentication attempts by flow and outcome",
			},
			[]string{"event", "outcome"},
		),
		AuthzDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrimony_authz_denied_total",
				Help: "Requests refused by the auth middleware, by reason",
			},
			[]string{"reason"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrimony_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"group"},
		),
		ConnectionEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrimony_connection_events_total",
				Help: "Connection request lifecycle events",
			},
			[]string{"event"},
		),
		CacheResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrimony_cache_results_total",
				Help: "Response cache lookups by result",
			},
			[]string{"result"},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthEventsTotal,
		m.AuthzDeniedTotal,
		m.RateLimitedTotal,
		m.ConnectionEventsTotal,
		m.CacheResultsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) AuthzDenied(reason string) {
	if m == nil {
		return
	}
	m.AuthzDeniedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RateLimited(group string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(group).Inc()
}

func (m *Metrics) ConnectionEvent(event string) {
	if m == nil {
		return
	}
	m.ConnectionEventsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.CacheResultsTotal.WithLabelValues(result).Inc()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
