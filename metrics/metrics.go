package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

/* Instruments for the notification pipeline, registered on the default
 * registry and served by promhttp.
 *
 * Server side: ingestion and fan-out. Client side: delivery pacing,
 * overload drops, and link reconnects.
 */
var (
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hooknotify_events_received_total",
		Help: "Total number of webhook events accepted by the ingestion endpoint.",
	})

	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hooknotify_events_rejected_total",
		Help: "Total number of webhook requests rejected with a client error.",
	})

	EventsBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hooknotify_events_broadcast_total",
		Help: "Total number of events fanned out to connected clients.",
	})

	ConnectionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hooknotify_connections_rejected_total",
		Help: "Total number of realtime connection attempts aborted at admission.",
	})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hooknotify_connected_clients",
		Help: "Number of clients currently registered with the broadcast hub.",
	})

	NotificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hooknotify_notifications_delivered_total",
		Help: "Total number of events handed to the presentation layer.",
	})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hooknotify_notifications_dropped_total",
		Help: "Total number of queued events evicted because the queue was full.",
	})

	LinkReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hooknotify_link_reconnects_total",
		Help: "Total number of reconnect attempts made by the persistent link.",
	})
)
