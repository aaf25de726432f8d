// Package metrics exposes the engine's operational counters through
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every instrument the engine reports into.
type Collector struct {
	TickDuration          prometheus.Histogram
	TicksTotal            prometheus.Counter
	LeafSimulationsTotal  prometheus.Counter
	AggregationMismatches prometheus.Counter
	WSClients             prometheus.Gauge
	ExportPublishesTotal  prometheus.Counter
	ExportErrorsTotal     prometheus.Counter
}

// NewCollector registers the instruments under a namespace on the default
// registry.
func NewCollector(namespace string) *Collector {
	return &Collector{
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of one simulate-aggregate-validate pass",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total simulation ticks processed",
		}),
		LeafSimulationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaf_simulations_total",
			Help:      "Total leaf space simulations executed",
		}),
		AggregationMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_mismatches_total",
			Help:      "Parent metrics drifting beyond tolerance from their children",
		}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected websocket clients",
		}),
		ExportPublishesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_publishes_total",
			Help:      "Metric samples published to the export topic",
		}),
		ExportErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_errors_total",
			Help:      "Failed export publishes",
		}),
	}
}
