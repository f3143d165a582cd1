// Package metrics exports hook events of the emulator and the session
// managers as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/hooking"
)

const namespace = "netsync"

// Collector is a hook that counts every event it sees. Attach the same
// collector to every domain of a run.
type Collector struct {
	events    *prometheus.CounterVec
	bytesSent prometheus.Counter
	lag       prometheus.Histogram
}

// NewCollector creates a collector registered with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hook_events_total",
			Help:      "Number of hook events by domain and position",
		}, []string{"domain", "pos"}),

		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packet_bytes_sent_total",
			Help:      "Payload bytes scheduled for delivery by the emulator",
		}),

		lag: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "packet_lag_seconds",
			Help:      "Virtual time between send and delivery of delivered packets",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// Func records one hook event.
func (c *Collector) Func(ctx hooking.HookCtx) {
	c.events.WithLabelValues(domainName(ctx.Domain), ctx.Pos.Name).Inc()

	pkt, ok := ctx.Item.(*emulator.Packet)
	if !ok {
		return
	}

	switch ctx.Pos {
	case emulator.HookPosPacketSend:
		c.bytesSent.Add(float64(len(pkt.Payload)))
	case emulator.HookPosPacketDeliver:
		c.lag.Observe(float64(pkt.Lag()))
	}
}

func domainName(d hooking.Hookable) string {
	if named, ok := d.(hooking.Named); ok {
		return named.Name()
	}

	return "unknown"
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
