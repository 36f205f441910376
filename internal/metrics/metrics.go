package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livechat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livechat_connections_active",
			Help: "Currently registered transport connections",
		},
	)

	DroppedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_dropped_frames_total",
			Help: "Outbound frames dropped for slow consumers",
		},
		[]string{"event"},
	)

	// Room lifecycle metrics
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_rooms_created_total",
			Help: "Total rooms created by guest requests",
		},
	)

	RoomsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_rooms_accepted_total",
			Help: "Total waiting rooms taken by an agent",
		},
	)

	RoomsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_rooms_closed_total",
			Help: "Total rooms closed",
		},
	)

	AcceptConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_accept_conflicts_total",
			Help: "Accept attempts that lost the waiting->active race",
		},
	)

	GuestReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_guest_reconnects_total",
			Help: "Guest connections re-attached to an existing room",
		},
	)

	// Relay metrics
	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_messages_relayed_total",
			Help: "Total chat messages persisted and fanned out",
		},
	)
)
