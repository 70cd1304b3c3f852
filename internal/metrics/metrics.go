// Package metrics exposes room and gateway counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	Rooms       prometheus.Gauge
	Connections prometheus.Gauge
	Extractions prometheus.Counter
	Wins        *prometheus.CounterVec
	Chat        prometheus.Counter
	Closures    *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg *prometheus.Registry) *Collector {
	c := &Collector{
		registry: reg,
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tombola",
			Name:      "rooms_active",
			Help:      "Rooms currently held in the registry.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tombola",
			Name:      "connections_active",
			Help:      "Open websocket connections.",
		}),
		Extractions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tombola",
			Name:      "extractions_total",
			Help:      "Numbers extracted across all rooms.",
		}),
		Wins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tombola",
			Name:      "wins_total",
			Help:      "Prizes awarded, by prize name.",
		}, []string{"prize"}),
		Chat: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tombola",
			Name:      "chat_messages_total",
			Help:      "Chat messages relayed.",
		}),
		Closures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tombola",
			Name:      "rooms_closed_total",
			Help:      "Rooms removed from the registry, by reason.",
		}, []string{"reason"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tombola",
			Name:      "rejections_total",
			Help:      "Client events rejected, by error kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(c.Rooms, c.Connections, c.Extractions, c.Wins, c.Chat, c.Closures, c.Rejections)
	return c
}

// NewNop returns a collector on a private registry, for tests.
func NewNop() *Collector {
	return New(prometheus.NewRegistry())
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
