package network

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of a simulator.
type Metrics struct {
	stepsTotal   prometheus.Counter
	itemsTotal   *prometheus.CounterVec
	itemsFlight  prometheus.Gauge
	segments     prometheus.Gauge
	tick         prometheus.Gauge
	stepDuration prometheus.Histogram
	reloads      *prometheus.CounterVec
	snapshots    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		stepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "conduit_steps_total",
				Help: "Total number of simulation steps executed",
			},
		),

		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_items_total",
				Help: "Travelling items by tick outcome",
			},
			[]string{"outcome"},
		),

		itemsFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "conduit_items_in_flight",
				Help: "Item units currently inside segments",
			},
		),

		segments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "conduit_segments",
				Help: "Number of placed segments",
			},
		),

		tick: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "conduit_tick",
				Help: "Current simulation tick",
			},
		),

		stepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "conduit_step_duration_seconds",
				Help:    "Wall time of one simulation step in seconds",
				Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
			},
		),

		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_layout_reloads_total",
				Help: "Layout reload attempts by status",
			},
			[]string{"status"},
		),

		snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conduit_snapshots_total",
				Help: "Snapshot persistence attempts by status",
			},
			[]string{"status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.stepsTotal,
		m.itemsTotal,
		m.itemsFlight,
		m.segments,
		m.tick,
		m.stepDuration,
		m.reloads,
		m.snapshots,
	)

	return m
}

// RecordStep updates the collectors from a step report.
func (m *Metrics) RecordStep(r StepReport) {
	m.stepsTotal.Inc()
	m.tick.Set(float64(r.Tick))
	m.segments.Set(float64(r.Segments))
	m.itemsFlight.Set(float64(r.InFlight))
	m.stepDuration.Observe(r.Duration.Seconds())

	for outcome, n := range map[string]int{
		"delivered":  r.Delivered,
		"handed_off": r.HandedOff,
		"voided":     r.Voided,
		"dropped":    r.Dropped,
		"stalled":    r.Stalled,
		"injected":   r.Injected,
		"split":      r.Split,
	} {
		if n > 0 {
			m.itemsTotal.WithLabelValues(outcome).Add(float64(n))
		}
	}
}

// RecordReload counts a layout reload attempt.
func (m *Metrics) RecordReload(status string) {
	m.reloads.WithLabelValues(status).Inc()
}

// RecordSnapshot counts a snapshot persistence attempt.
func (m *Metrics) RecordSnapshot(status string) {
	m.snapshots.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
