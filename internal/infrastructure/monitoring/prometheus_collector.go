package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector records hub and HTTP activity. It implements collab.Recorder.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	roomsTotal        prometheus.Gauge
	joinsTotal        prometheus.Counter
	slowConsumers     prometheus.Counter

	eventsRelayed  *prometheus.CounterVec
	eventsDropped  *prometheus.CounterVec
	relayFanout    prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	snapshotsSaved prometheus.Counter
	snapshotBytes  prometheus.Histogram
}

// NewPrometheusCollector registers the collector's metrics with reg. Pass
// prometheus.DefaultRegisterer in production.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sketchroom_connections_active",
			Help: "Number of open websocket connections",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sketchroom_connections_total",
			Help: "Total number of websocket connections accepted",
		}),

		roomsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sketchroom_rooms",
			Help: "Number of rooms in the hub arena",
		}),

		joinsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sketchroom_room_joins_total",
			Help: "Total number of successful room joins",
		}),

		slowConsumers: factory.NewCounter(prometheus.CounterOpts{
			Name: "sketchroom_slow_consumer_disconnects_total",
			Help: "Connections dropped because their outbound queue was full",
		}),

		eventsRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sketchroom_events_relayed_total",
			Help: "Events fanned out to room members",
		}, []string{"event"}),

		eventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sketchroom_events_dropped_total",
			Help: "Inbound events dropped before relay",
		}, []string{"reason"}),

		relayFanout: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sketchroom_relay_fanout",
			Help:    "Recipients per relayed event",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sketchroom_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sketchroom_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		snapshotsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "sketchroom_snapshots_saved_total",
			Help: "Canvas snapshots saved",
		}),

		snapshotBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sketchroom_snapshot_bytes",
			Help:    "Size of saved canvas snapshots",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}

func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) ConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) RoomJoined(roomCount int) {
	p.joinsTotal.Inc()
	p.roomsTotal.Set(float64(roomCount))
}

func (p *PrometheusCollector) EventRelayed(event string, recipients int) {
	p.eventsRelayed.WithLabelValues(event).Inc()
	p.relayFanout.Observe(float64(recipients))
}

func (p *PrometheusCollector) EventDropped(reason string) {
	p.eventsDropped.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) SlowConsumerDisconnected() {
	p.slowConsumers.Inc()
}

func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, seconds float64) {
	p.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func (p *PrometheusCollector) RecordSnapshotSaved(bytes int) {
	p.snapshotsSaved.Inc()
	p.snapshotBytes.Observe(float64(bytes))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
