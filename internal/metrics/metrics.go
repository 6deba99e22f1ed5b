// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moodchat",
		Name:      "online_users",
		Help:      "Users holding at least one live connection.",
	})
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moodchat",
		Name:      "live_connections",
		Help:      "Registered live connections across all users.",
	})
	MessagesPersisted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodchat",
		Name:      "messages_persisted_total",
		Help:      "Messages accepted by the delivery pipeline, by content type.",
	}, []string{"content_type"})
	StatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodchat",
		Name:      "message_status_transitions_total",
		Help:      "Persisted message status transitions, by target status.",
	}, []string{"status"})
	DroppedEmits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moodchat",
		Name:      "dropped_emits_total",
		Help:      "Outbound events dropped because a connection buffer was full or closed.",
	})
	InboundEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodchat",
		Name:      "inbound_events_total",
		Help:      "Socket events received, by event name and outcome.",
	}, []string{"event", "outcome"})
)

func init() {
	prometheus.MustRegister(
		OnlineUsers,
		Connections,
		MessagesPersisted,
		StatusTransitions,
		DroppedEmits,
		InboundEvents,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
