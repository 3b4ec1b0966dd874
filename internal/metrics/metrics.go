// Package metrics exposes Prometheus instrumentation for the chat core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message kinds used as label values.
const (
	KindPublic  = "public"
	KindPrivate = "private"
)

// Metrics holds the collectors updated by the hub. All methods are nil-safe
// so callers can run without instrumentation (tests, embedded use).
type Metrics struct {
	registry *prometheus.Registry

	connections  prometheus.Gauge
	rooms        prometheus.Gauge
	messages     *prometheus.CounterVec
	typingEvents prometheus.Counter
	historyLoads prometheus.Counter
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_connections",
			Help: "Number of open client connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomchat_rooms",
			Help: "Number of rooms with at least one member.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomchat_messages_total",
			Help: "Messages persisted and broadcast, by kind.",
		}, []string{"kind"}),
		typingEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_typing_events_total",
			Help: "Typing start broadcasts sent to rooms.",
		}),
		historyLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomchat_history_loads_total",
			Help: "History replays delivered on join.",
		}),
	}

	m.registry.MustRegister(m.connections, m.rooms, m.messages, m.typingEvents, m.historyLoads)
	return m
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ConnOpened records a new client connection.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnClosed records a client disconnect.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// SetRooms records the current number of occupied rooms.
func (m *Metrics) SetRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}

// MessageStored records a delivered message of the given kind.
func (m *Metrics) MessageStored(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

// TypingStarted records a typing-start broadcast.
func (m *Metrics) TypingStarted() {
	if m == nil {
		return
	}
	m.typingEvents.Inc()
}

// HistoryLoaded records a history replay delivered to a joining client.
func (m *Metrics) HistoryLoaded() {
	if m == nil {
		return
	}
	m.historyLoads.Inc()
}
