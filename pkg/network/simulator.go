package network

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polisai/conduit/pkg/pipe"
	"github.com/polisai/conduit/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRandomTickChance is the per-segment probability of a random tick each step.
const DefaultRandomTickChance = 3.0 / 4096

// StepReport summarises one simulation step.
type StepReport struct {
	pipe.TickReport
	Tick        uint64
	Segments    int
	InFlight    int
	RandomTicks int
	Duration    time.Duration
}

// SimulatorConfig holds dependencies for creating a Simulator.
type SimulatorConfig struct {
	Name    string
	Grid    *Grid
	Logger  *slog.Logger
	Metrics *Metrics
	// RandomTickChance is the per-segment random tick probability; negative disables.
	RandomTickChance float64
}

// Simulator steps a Grid. It is safe for concurrent use; each call holds the
// grid for its whole duration.
type Simulator struct {
	name    string
	logger  *slog.Logger
	metrics *Metrics
	chance  float64

	mu     sync.Mutex
	grid   *Grid
	totals pipe.TickReport
}

// NewSimulator creates a simulator with the given configuration.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	grid := cfg.Grid
	if grid == nil {
		grid = NewGrid(0)
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	chance := cfg.RandomTickChance
	if chance == 0 {
		chance = DefaultRandomTickChance
	}

	return &Simulator{
		name:    name,
		logger:  logger,
		metrics: cfg.Metrics,
		chance:  chance,
		grid:    grid,
	}
}

// Step advances the grid by one tick.
//
// Segments tick in ascending position order, so the outcome depends only on the
// grid state and its seed.
func (s *Simulator) Step(ctx context.Context) StepReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	tracer := otel.Tracer(telemetry.TracerName)
	var span trace.Span
	_, span = tracer.Start(ctx, "network.step")
	defer span.End()

	g := s.grid
	tick := g.advance()
	g.charge()
	segments := g.Segments()

	var report StepReport
	for _, seg := range segments {
		report.Add(seg.Tick(g))
	}
	if s.chance > 0 {
		for _, seg := range segments {
			if g.rng.Float64() < s.chance {
				seg.RandomTick(g)
				report.RandomTicks++
			}
		}
	}

	report.Tick = tick
	report.Segments = len(segments)
	report.InFlight = g.InFlight()
	report.Duration = time.Since(start)
	s.totals.Add(report.TickReport)

	span.SetAttributes(
		attribute.String("network.name", s.name),
		attribute.Int64("network.tick", int64(tick)),
		attribute.Int("network.segments", report.Segments),
		attribute.Int("network.items_in_flight", report.InFlight),
		attribute.Int("network.items_delivered", report.Delivered),
		attribute.Int("network.items_stalled", report.Stalled),
	)

	if report.Stalled > 0 {
		s.logger.Debug("items stalled at junction", "tick", tick, "stalled", report.Stalled)
	}
	if report.Voided > 0 || report.Dropped > 0 {
		s.logger.Debug("items left the network", "tick", tick, "voided", report.Voided, "dropped", report.Dropped)
	}

	if s.metrics != nil {
		s.metrics.RecordStep(report)
	}
	telemetry.RecordStep(ctx, telemetry.StepMetrics{
		Network:   s.name,
		Tick:      tick,
		Segments:  report.Segments,
		InFlight:  report.InFlight,
		Delivered: report.Delivered,
		HandedOff: report.HandedOff,
		Voided:    report.Voided,
		Dropped:   report.Dropped,
		Stalled:   report.Stalled,
		Injected:  report.Injected,
		Duration:  report.Duration,
	})

	return report
}

// Run steps the grid ticks times, stopping early when ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, ticks int) (pipe.TickReport, error) {
	var total pipe.TickReport
	for range ticks {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		total.Add(s.Step(ctx).TickReport)
	}
	return total, nil
}

// Totals returns the outcomes accumulated since the simulator was created.
func (s *Simulator) Totals() pipe.TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Tick returns the current tick of the grid.
func (s *Simulator) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Time()
}

// SetGrid swaps the simulated grid, e.g. after a layout reload. The clock
// never runs backwards: a younger grid continues from the current tick.
func (s *Simulator) SetGrid(g *Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.time < s.grid.time {
		g.time = s.grid.time
	}
	s.grid = g
	s.logger.Info("grid replaced", "segments", len(g.segments), "inventories", len(g.inventories))
}

// With runs fn while holding the grid, for inserts and interactions between steps.
func (s *Simulator) With(fn func(g *Grid)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.grid)
}

// Snapshot captures the current grid state.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Snapshot()
}
