// Package metrics provides Prometheus metrics for the leasing agent.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exercised per chat turn.
type Metrics struct {
	TurnsTotal     *prometheus.CounterVec
	TurnDuration   prometheus.Histogram
	SearchesTotal  prometheus.Counter
	BookingsTotal  *prometheus.CounterVec
	UpstreamErrors prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests use a private
// registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layla_chat_turns_total",
				Help: "Chat turns processed, by extracted intent",
			},
			[]string{"intent"},
		),
		TurnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "layla_chat_turn_duration_seconds",
				Help:    "End-to-end duration of one chat turn",
				Buckets: prometheus.DefBuckets,
			},
		),
		SearchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "layla_searches_total",
				Help: "Listing store searches issued",
			},
		),
		BookingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layla_bookings_total",
				Help: "Tour booking attempts, by outcome",
			},
			[]string{"status"},
		),
		UpstreamErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "layla_upstream_errors_total",
				Help: "Completion or search upstream failures after retry",
			},
		),
	}
}
