package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/layout"
	"github.com/polisai/conduit/pkg/network"
	"github.com/polisai/conduit/pkg/storage"
	"github.com/polisai/conduit/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a layout at the configured tick rate until interrupted",
		Long: `Serve runs the layout in real time, exposes Prometheus metrics on /metrics,
reloads the layout when the file changes and persists snapshots periodically.`,
		RunE: runServe,
	}
	cmd.Flags().String("layout", "", "Path to layout file (YAML)")
	cmd.Flags().Bool("watch", false, "Reload the layout when the file changes")
	cmd.Flags().Bool("resume", false, "Resume from the latest stored snapshot of the network")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	path, err := env.layoutPath(cmd)
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	resume, err := cmd.Flags().GetBool("resume")
	if err != nil {
		return fmt.Errorf("failed to get resume flag: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			env.logger.Info("Received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	srv, err := newServer(env, path, watch || env.cfg.Layout.Watch, resume)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.SetupProvider(ctx, srv.telemetryConfig())
	if err != nil {
		srv.discard()
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			env.logger.Error("Error flushing traces", "error", err)
		}
	}()

	return srv.Run(ctx)
}

// server owns the simulator, the snapshot store, the layout loader and the metrics listener.
type server struct {
	env      *environment
	logger   *slog.Logger
	name     string
	seed     uint64
	sim      *network.Simulator
	metrics  *network.Metrics
	store    storage.SnapshotStore
	loader   *layout.Loader
	watch    bool
	listener net.Listener
}

func newServer(env *environment, path string, watch, resume bool) (*server, error) {
	loader, err := layout.NewLoader(path, network.DefaultCatalog(env.cfg.Simulation.EffectivePhysics()), env.logger)
	if err != nil {
		return nil, err
	}
	doc, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}

	store, err := storage.Open(env.cfg.Storage.Driver, env.cfg.Storage.Path)
	if err != nil {
		_ = loader.Close()
		return nil, err
	}

	s := &server{
		env:     env,
		logger:  env.logger.With("component", "server"),
		name:    env.networkName(doc),
		metrics: network.NewMetrics(),
		store:   store,
		loader:  loader,
		watch:   watch,
	}

	grid, err := s.initialGrid(doc, resume)
	if err != nil {
		s.discard()
		return nil, err
	}
	s.seed = grid.Seed()
	s.sim = network.NewSimulator(network.SimulatorConfig{
		Name:             s.name,
		Grid:             grid,
		Logger:           env.logger,
		Metrics:          s.metrics,
		RandomTickChance: env.cfg.Simulation.RandomTickChance,
	})

	if addr := env.cfg.Metrics.Address; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			s.discard()
			return nil, fmt.Errorf("listen on %s: %w", addr, err)
		}
		s.listener = ln
	}
	return s, nil
}

// telemetryConfig tags every exported span with the network being served.
func (s *server) telemetryConfig() telemetry.Config {
	cfg := s.env.cfg
	return telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Endpoint:     cfg.Telemetry.OTLPEndpoint,
		Environment:  cfg.Telemetry.Environment,
		Insecure:     cfg.Telemetry.Insecure,
		Headers:      cfg.Telemetry.Headers,
		ResourceTags: cfg.Telemetry.ResourceTags,
		Network:      s.name,
		TickRate:     cfg.Simulation.TickRate,
		Seed:         s.seed,
	}
}

// discard releases what newServer acquired when the server never runs.
func (s *server) discard() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	_ = s.loader.Close()
	_ = s.store.Close()
}

// initialGrid restores the latest snapshot when resuming and one exists,
// otherwise builds the layout.
func (s *server) initialGrid(doc *layout.Document, resume bool) (*network.Grid, error) {
	if resume {
		rec, err := s.store.Latest(context.Background(), s.name)
		switch {
		case err == nil:
			snap, err := network.Codec{}.Decode(rec.Data)
			if err != nil {
				return nil, err
			}
			grid, err := network.Restore(snap, s.env.catalogFor(doc))
			if err != nil {
				return nil, err
			}
			s.logger.Info("Resumed from snapshot", "network", s.name, "tick", rec.Tick)
			return grid, nil
		case errors.Is(err, domain.ErrSnapshotNotFound):
			s.logger.Info("No snapshot to resume from, building layout", "network", s.name)
		default:
			return nil, err
		}
	}
	return s.env.buildGrid(doc)
}

// Run steps the simulator at the configured rate until ctx is cancelled, then
// persists a final snapshot and shuts everything down.
func (s *server) Run(ctx context.Context) error {
	defer s.store.Close()
	defer s.loader.Close()

	if s.watch {
		if err := s.loader.Watch(s.reload); err != nil {
			if s.listener != nil {
				_ = s.listener.Close()
			}
			return err
		}
		s.logger.Info("Watching layout", "path", s.loader.Path())
	}

	var httpServer *http.Server
	if s.listener != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Metrics server error", "error", err)
			}
		}()
		s.logger.Info("Serving metrics", "address", s.listener.Addr().String())
	}

	interval := s.env.cfg.Simulation.SnapshotInterval
	keep := s.env.cfg.Simulation.SnapshotKeep
	ticker := time.NewTicker(s.env.cfg.Simulation.TickInterval())
	defer ticker.Stop()

	s.logger.Info("Starting simulation", "network", s.name, "tick_rate", s.env.cfg.Simulation.TickRate)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			report := s.sim.Step(ctx)
			if interval > 0 && report.Tick%interval == 0 {
				s.snapshot(ctx, keep)
			}
		}
	}

	// The run context is gone; the final snapshot and shutdown get their own.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.snapshot(shutdownCtx, keep)
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Error during shutdown", "error", err)
		}
	}
	s.logger.Info("Simulation stopped", "tick", s.sim.Tick())
	return nil
}

func (s *server) snapshot(ctx context.Context, keep int) {
	tick, err := persistSnapshot(ctx, s.store, s.name, s.sim, keep)
	if err != nil {
		s.metrics.RecordSnapshot("error")
		s.logger.Error("Failed to persist snapshot", "error", err)
		return
	}
	s.metrics.RecordSnapshot("success")
	s.logger.Debug("Snapshot persisted", "network", s.name, "tick", tick)
}

// reload swaps in a grid built from a freshly loaded layout.
func (s *server) reload(doc *layout.Document) {
	_, span := otel.Tracer(telemetry.TracerName).Start(context.Background(), "layout.reload")
	defer span.End()

	grid, err := s.env.buildGrid(doc)
	telemetry.RecordReload(span, s.loader.Path(), len(doc.Segments), err)
	if err != nil {
		s.metrics.RecordReload("error")
		s.logger.Error("Reloaded layout failed to build, keeping current grid", "error", err)
		return
	}
	s.metrics.RecordReload("success")
	s.sim.SetGrid(grid)
}
