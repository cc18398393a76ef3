package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics are the viewer and stream collectors.
type serverMetrics struct {
	viewers        prometheus.Gauge
	batchesSent    prometheus.Counter
	framesSent     prometheus.Counter
	mutationsSent  prometheus.Counter
	eventsReceived *prometheus.CounterVec
	wsErrors       *prometheus.CounterVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	const ns, sub = "vtree", "server"

	return &serverMetrics{
		viewers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "viewers",
			Help:      "Number of connected websocket viewers",
		}),
		batchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "batches_sent_total",
			Help:      "Total number of mutation batches broadcast",
		}),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "frames_sent_total",
			Help:      "Total number of frames written to viewers",
		}),
		mutationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "mutations_sent_total",
			Help:      "Total number of host mutations broadcast",
		}),
		eventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "events_received_total",
			Help:      "Total number of remote events by outcome",
		}, []string{"status"}),
		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "websocket_errors_total",
			Help:      "Total WebSocket errors by type",
		}, []string{"type"}),
	}
}

func (m *serverMetrics) event(status string) {
	m.eventsReceived.WithLabelValues(status).Inc()
}

func (m *serverMetrics) wsError(kind string) {
	m.wsErrors.WithLabelValues(kind).Inc()
}
