package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthEvent("login", "ok")
		m.AuthzDenied("invalid_token")
		m.RateLimited("login")
		m.ConnectionEvent("sent")
		m.CacheResult("hit")
		m.ObserveRequest("GET", "/health", "200", 0.01)
	})
}

func TestCountersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AuthEvent("login", "invalid_credentials")
	m.AuthEvent("login", "invalid_credentials")
	m.RateLimited("login")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal.WithLabelValues("login")))
}

func TestObserveRequestLabelsStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest("POST", "/auth/login", "401", 0.2)
	m.ObserveRequest("POST", "/auth/login", "200", 0.1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "401")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPRequestDuration, "matrimony_http_request_duration_seconds"))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ConnectionEvent("accepted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `matrimony_connection_events_total{event="accepted"} 1`)
}
