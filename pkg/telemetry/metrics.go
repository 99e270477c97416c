package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce       sync.Once
	metricsInitErr    error
	stepCounter       metric.Int64Counter
	itemOutcomeCount  metric.Int64Counter
	itemsInFlight     metric.Int64Gauge
	stepLatencyMillis metric.Float64Histogram
)

// StepMetrics captures the outcome of one network step.
type StepMetrics struct {
	Network   string
	Tick      uint64
	Segments  int
	InFlight  int
	Delivered int
	HandedOff int
	Voided    int
	Dropped   int
	Stalled   int
	Injected  int
	Duration  time.Duration
}

// RecordStep emits counters and the duration histogram for one step.
func RecordStep(ctx context.Context, m StepMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	base := attribute.String("network.name", m.Network)
	stepCounter.Add(ctx, 1, metric.WithAttributes(base))
	itemsInFlight.Record(ctx, int64(m.InFlight), metric.WithAttributes(base))

	outcomes := []struct {
		name  string
		count int
	}{
		{"delivered", m.Delivered},
		{"handed_off", m.HandedOff},
		{"voided", m.Voided},
		{"dropped", m.Dropped},
		{"stalled", m.Stalled},
		{"injected", m.Injected},
	}
	for _, o := range outcomes {
		if o.count == 0 {
			continue
		}
		itemOutcomeCount.Add(ctx, int64(o.count), metric.WithAttributes(base, attribute.String("item.outcome", o.name)))
	}

	if m.Duration > 0 {
		stepLatencyMillis.Record(ctx, float64(m.Duration)/float64(time.Millisecond), metric.WithAttributes(base))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(TracerName)

		stepCounter, metricsInitErr = meter.Int64Counter(
			"conduit.network.steps_total",
			metric.WithDescription("Simulation steps executed"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		itemOutcomeCount, metricsInitErr = meter.Int64Counter(
			"conduit.network.items_total",
			metric.WithDescription("Item units partitioned by tick outcome"),
			metric.WithUnit("{item}"),
		)
		if metricsInitErr != nil {
			return
		}

		itemsInFlight, metricsInitErr = meter.Int64Gauge(
			"conduit.network.items_in_flight",
			metric.WithDescription("Item units travelling through segments after the step"),
			metric.WithUnit("{item}"),
		)
		if metricsInitErr != nil {
			return
		}

		stepLatencyMillis, metricsInitErr = meter.Float64Histogram(
			"conduit.network.step_duration_ms",
			metric.WithDescription("Observed wall time of one simulation step"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}

// RecordReload attaches a layout reload event to the provided span.
func RecordReload(span trace.Span, path string, segments int, err error) {
	if span == nil || !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("layout.path", path),
		attribute.Int("layout.segments", segments),
		attribute.Bool("layout.applied", err == nil),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("layout.error", err.Error()))
	}

	span.AddEvent("layout.reload", trace.WithAttributes(attrs...))
}
