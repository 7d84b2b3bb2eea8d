// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the chart service.
type Metrics struct {
	// Feed metrics
	SnapshotsProcessed prometheus.Counter
	FeedConnected      prometheus.Gauge

	// Engine metrics
	FrameBuildDuration prometheus.Histogram
	UpdateErrors       prometheus.Counter
	ZoomGestures       prometheus.Counter

	// Server metrics
	FramesBroadcast  prometheus.Counter
	InputEvents      *prometheus.CounterVec
	ConnectedClients prometheus.Gauge
}

// NewMetrics registers the full metric set with reg; nil registers with
// the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "depth_chart"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Feed metrics
		SnapshotsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "snapshots_processed_total",
			Help:      "Total number of book snapshots turned into frames",
		}),
		FeedConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "Whether the book feed is connected (1) or not (0)",
		}),

		// Engine metrics
		FrameBuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "frame_build_duration_seconds",
			Help:      "Time spent building one render frame",
			Buckets:   prometheus.DefBuckets,
		}),
		UpdateErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "update_errors_total",
			Help:      "Total number of rejected chart updates",
		}),
		ZoomGestures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "zoom_gestures_total",
			Help:      "Total number of completed zoom gestures",
		}),

		// Server metrics
		FramesBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "frames_broadcast_total",
			Help:      "Total number of frames broadcast to websocket clients",
		}),
		InputEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "input_events_total",
			Help:      "Total number of client input events by type",
		}, []string{"type"}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connected_clients",
			Help:      "Number of websocket clients currently connected",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
