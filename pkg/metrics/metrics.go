// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks REST request duration against the platform API.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_api_request_duration_seconds",
			Help:    "REST request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total REST requests issued.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_api_requests_total",
			Help: "Total REST requests",
		},
		[]string{"method", "path", "status"},
	)

	// SocketConnectsTotal tracks socket connection attempts by outcome.
	SocketConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_socket_connects_total",
			Help: "Socket connection attempts",
		},
		[]string{"channel", "outcome"},
	)

	// SocketReconnectsTotal tracks automatic reconnect attempts.
	SocketReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_socket_reconnects_total",
			Help: "Automatic socket reconnect attempts",
		},
		[]string{"channel"},
	)

	// SocketEventsTotal tracks inbound socket events by decoded type.
	SocketEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_socket_events_total",
			Help: "Inbound socket events by type",
		},
		[]string{"channel", "type"},
	)

	// SocketDroppedFramesTotal tracks frames that failed to decode.
	SocketDroppedFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_socket_dropped_frames_total",
			Help: "Inbound frames dropped as malformed or unknown",
		},
		[]string{"channel"},
	)

	// MessagesSentTotal tracks outbound messages by transport.
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Messages sent by transport",
		},
		[]string{"transport"},
	)

	// MessagesReceivedTotal tracks live messages appended to the store.
	MessagesReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_received_total",
			Help: "Live messages received over the conversation socket",
		},
	)

	// StoreSize tracks the number of messages held for the active conversation.
	StoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_store_messages",
			Help: "Messages held in the active conversation store",
		},
	)

	// TypingEventsTotal tracks typing signals by direction.
	TypingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_typing_events_total",
			Help: "Typing start/stop signals",
		},
		[]string{"direction", "status"},
	)

	// HeartbeatsTotal tracks heartbeats sent on the notification channel.
	HeartbeatsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_heartbeats_total",
			Help: "Heartbeat frames sent on the notification socket",
		},
	)

	// BridgePublishesTotal tracks events republished to NATS.
	BridgePublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_bridge_publishes_total",
			Help: "Events republished to NATS by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRequest records metrics for a REST request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordConnect records a socket connection attempt.
func RecordConnect(channel string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	SocketConnectsTotal.WithLabelValues(channel, outcome).Inc()
}
