// Package metrics exposes delivery counters for pushd.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pushd counters and a small status snapshot.
type Metrics struct {
	registry *prometheus.Registry

	received   *prometheus.CounterVec
	displayed  prometheus.Counter
	malformed  prometheus.Counter
	presentErr prometheus.Counter

	mu           sync.RWMutex
	startedAt    time.Time
	lastDelivery time.Time
	counts       Snapshot
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	StartedAt       time.Time `json:"started_at"`
	LastDelivery    time.Time `json:"last_delivery,omitzero"`
	Received        int64     `json:"received"`
	Displayed       int64     `json:"displayed"`
	Malformed       int64     `json:"malformed"`
	PresenterErrors int64     `json:"presenter_errors"`
}

// New creates a Metrics backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pushd_messages_received_total",
			Help: "Push messages received, by transport.",
		}, []string{"transport"}),
		displayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pushd_notifications_displayed_total",
			Help: "Notifications handed to the presenter.",
		}),
		malformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pushd_messages_malformed_total",
			Help: "Push messages dropped because they could not be displayed.",
		}),
		presentErr: factory.NewCounter(prometheus.CounterOpts{
			Name: "pushd_presenter_errors_total",
			Help: "Presenter calls that returned an error.",
		}),
		startedAt: time.Now(),
	}
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Received records a message received on the named transport.
// A nil Metrics is a no-op, as are the other recorders.
func (m *Metrics) Received(transport string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(transport).Inc()

	m.mu.Lock()
	m.counts.Received++
	m.lastDelivery = time.Now()
	m.mu.Unlock()
}

// Displayed records a notification handed to the presenter.
func (m *Metrics) Displayed() {
	if m == nil {
		return
	}
	m.displayed.Inc()

	m.mu.Lock()
	m.counts.Displayed++
	m.mu.Unlock()
}

// Malformed records a dropped malformed message.
func (m *Metrics) Malformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()

	m.mu.Lock()
	m.counts.Malformed++
	m.mu.Unlock()
}

// PresenterError records a failed presenter call.
func (m *Metrics) PresenterError() {
	if m == nil {
		return
	}
	m.presentErr.Inc()

	m.mu.Lock()
	m.counts.PresenterErrors++
	m.mu.Unlock()
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.counts
	s.StartedAt = m.startedAt
	s.LastDelivery = m.lastDelivery
	return s
}
