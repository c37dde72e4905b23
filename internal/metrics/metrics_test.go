package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Received("webhook")
	m.Received("webhook")
	m.Received("nats")
	m.Displayed()
	m.Malformed()
	m.PresenterError()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.received.WithLabelValues("webhook")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.received.WithLabelValues("nats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.displayed))

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.Received)
	assert.Equal(t, int64(1), s.Displayed)
	assert.Equal(t, int64(1), s.Malformed)
	assert.Equal(t, int64(1), s.PresenterErrors)
	assert.False(t, s.StartedAt.IsZero())
	assert.False(t, s.LastDelivery.IsZero())
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Received("x")
		m.Displayed()
		m.Malformed()
		m.PresenterError()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Displayed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pushd_notifications_displayed_total 1")
}
