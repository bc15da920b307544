// Package metrics holds the Prometheus collectors of the messaging core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collab"

// Result labels.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
	ResultFailed  = "failed"
)

type Metrics struct {
	reg *prometheus.Registry

	searches        prometheus.Counter
	searchFailures  prometheus.Counter
	chatsCreated    prometheus.Counter
	messagesSent    *prometheus.CounterVec
	subscriptions   prometheus.Gauge
	feedRefreshes   *prometheus.CounterVec
	outboxPublishes *prometheus.CounterVec
	bridgeEvents    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		searches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "searches_total",
			Help:      "Directory searches served.",
		}),
		searchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "search_failures_total",
			Help:      "Directory searches that degraded to an empty result.",
		}),
		chatsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "chats_created_total",
			Help:      "Conversations created by get-or-create.",
		}),
		messagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "messages_sent_total",
			Help:      "Send attempts by result.",
		}, []string{"result"}),
		subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "active_subscriptions",
			Help:      "Live message subscriptions.",
		}),
		feedRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "feed_refreshes_total",
			Help:      "Subscription history re-fetches by result.",
		}, []string{"result"}),
		outboxPublishes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publishes_total",
			Help:      "Outbox relay attempts by result.",
		}, []string{"result"}),
		bridgeEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "events_total",
			Help:      "Row changes crossing the instance bridge by direction.",
		}, []string{"direction"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) SearchServed() {
	if m != nil {
		m.searches.Inc()
	}
}

func (m *Metrics) SearchFailed() {
	if m != nil {
		m.searchFailures.Inc()
	}
}

func (m *Metrics) ChatCreated() {
	if m != nil {
		m.chatsCreated.Inc()
	}
}

func (m *Metrics) MessageSent(result string) {
	if m != nil {
		m.messagesSent.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SubscriptionOpened() {
	if m != nil {
		m.subscriptions.Inc()
	}
}

func (m *Metrics) SubscriptionClosed() {
	if m != nil {
		m.subscriptions.Dec()
	}
}

func (m *Metrics) FeedRefreshed(result string) {
	if m != nil {
		m.feedRefreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) OutboxPublished(result string) {
	if m != nil {
		m.outboxPublishes.WithLabelValues(result).Inc()
	}
}

// BridgeEvent counts a change sent to ("out") or received from ("in") other
// instances.
func (m *Metrics) BridgeEvent(direction string) {
	if m != nil {
		m.bridgeEvents.WithLabelValues(direction).Inc()
	}
}
