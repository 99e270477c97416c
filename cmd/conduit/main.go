// Package main is the entry point for the conduit binary.
// It runs, validates and serves pipe network layouts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polisai/conduit/pkg/config"
	"github.com/polisai/conduit/pkg/layout"
	"github.com/polisai/conduit/pkg/logging"
	"github.com/polisai/conduit/pkg/network"
	"github.com/polisai/conduit/pkg/pipe"
	"github.com/polisai/conduit/pkg/storage"
)

const defaultTicks = 1200

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for conduit
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "conduit",
		Short: "Item transport pipe network simulator",
		Long: `Conduit simulates networks of item transport pipes on a voxel grid.

A layout file places pipe segments, inventories and powered cells; the
simulator then moves items through the network one tick at a time.

Example:
  conduit run --layout factory.yaml --ticks 2400
  conduit serve --layout factory.yaml --config conduit.yaml`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error), overrides the config file")

	rootCmd.AddCommand(newRunCmd(), newValidateCmd(), newServeCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a layout for a fixed number of ticks and print a summary",
		RunE:  runSimulation,
	}
	cmd.Flags().String("layout", "", "Path to layout file (YAML)")
	cmd.Flags().Int("ticks", defaultTicks, "Number of ticks to simulate")
	cmd.Flags().String("snapshot-db", "", "SQLite database receiving the final snapshot")
	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse, validate and build a layout without running it",
		RunE:  runValidate,
	}
	cmd.Flags().String("layout", "", "Path to layout file (YAML)")
	return cmd
}

// environment is the configuration and logger shared by every subcommand.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
}

func setup(cmd *cobra.Command) (*environment, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	slog.SetDefault(logger)

	return &environment{cfg: cfg, logger: logger}, nil
}

// layoutPath prefers the --layout flag over the configured layout file.
func (e *environment) layoutPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("layout")
	if err != nil {
		return "", fmt.Errorf("failed to get layout flag: %w", err)
	}
	if path == "" {
		path = e.cfg.Layout.File
	}
	if path == "" {
		return "", errors.New("no layout specified, use --layout or layout.file in the config")
	}
	return path, nil
}

// catalogFor builds the pipe catalog with the document's physics applied.
func (e *environment) catalogFor(doc *layout.Document) *network.Catalog {
	return network.DefaultCatalog(doc.PhysicsFor(e.cfg.Simulation.EffectivePhysics()))
}

// networkName prefers the layout's own name.
func (e *environment) networkName(doc *layout.Document) string {
	if doc != nil && doc.Name != "" {
		return doc.Name
	}
	return e.cfg.Simulation.Name
}

func (e *environment) buildGrid(doc *layout.Document) (*network.Grid, error) {
	return doc.Build(e.catalogFor(doc), e.cfg.Simulation.Seed)
}

func (e *environment) loadLayout(path string) (*layout.Document, error) {
	loader, err := layout.NewLoader(path, network.DefaultCatalog(e.cfg.Simulation.EffectivePhysics()), e.logger)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}

func runValidate(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	path, err := env.layoutPath(cmd)
	if err != nil {
		return err
	}

	doc, err := env.loadLayout(path)
	if err != nil {
		return fmt.Errorf("layout %s: %w", path, err)
	}
	g, err := env.buildGrid(doc)
	if err != nil {
		return fmt.Errorf("layout %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "layout %s ok: %d segments, %d inventories, %d items in flight\n",
		path, len(g.Segments()), len(g.Inventories()), g.InFlight())
	return nil
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	path, err := env.layoutPath(cmd)
	if err != nil {
		return err
	}
	ticks, err := cmd.Flags().GetInt("ticks")
	if err != nil {
		return fmt.Errorf("failed to get ticks flag: %w", err)
	}
	if ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", ticks)
	}
	snapshotDB, err := cmd.Flags().GetString("snapshot-db")
	if err != nil {
		return fmt.Errorf("failed to get snapshot-db flag: %w", err)
	}

	doc, err := env.loadLayout(path)
	if err != nil {
		return fmt.Errorf("layout %s: %w", path, err)
	}
	g, err := env.buildGrid(doc)
	if err != nil {
		return fmt.Errorf("layout %s: %w", path, err)
	}

	name := env.networkName(doc)
	sim := network.NewSimulator(network.SimulatorConfig{
		Name:             name,
		Grid:             g,
		Logger:           env.logger,
		RandomTickChance: env.cfg.Simulation.RandomTickChance,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env.logger.Info("Running layout", "layout", path, "network", name, "ticks", ticks)
	start := time.Now()
	totals, runErr := sim.Run(ctx, ticks)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	env.logger.Info("Run finished", "tick", sim.Tick(), "elapsed", time.Since(start))

	var inFlight int
	sim.With(func(g *network.Grid) { inFlight = g.InFlight() })
	printSummary(cmd.OutOrStdout(), sim.Tick(), totals, inFlight)

	if snapshotDB == "" {
		return nil
	}
	store, err := storage.OpenSQLite(snapshotDB)
	if err != nil {
		return err
	}
	defer store.Close()

	// The run may have been interrupted; a fresh context still lets the snapshot land.
	tick, err := persistSnapshot(context.Background(), store, name, sim, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "snapshot: %s@%d -> %s\n", name, tick, snapshotDB)
	return nil
}

func printSummary(w io.Writer, tick uint64, totals pipe.TickReport, inFlight int) {
	fmt.Fprintf(w, "tick: %d\n", tick)
	fmt.Fprintf(w, "injected: %d\n", totals.Injected)
	fmt.Fprintf(w, "delivered: %d\n", totals.Delivered)
	fmt.Fprintf(w, "voided: %d\n", totals.Voided)
	fmt.Fprintf(w, "dropped: %d\n", totals.Dropped)
	fmt.Fprintf(w, "in flight: %d\n", inFlight)
}

// persistSnapshot encodes the current grid and saves it, pruning to keep records when keep > 0.
func persistSnapshot(ctx context.Context, store storage.SnapshotStore, name string, sim *network.Simulator, keep int) (uint64, error) {
	snap := sim.Snapshot()
	data, err := network.Codec{}.Encode(snap)
	if err != nil {
		return 0, err
	}
	rec := storage.Record{Network: name, Tick: snap.Tick, Data: data, CreatedAt: time.Now().UTC()}
	if err := store.Save(ctx, rec); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	if keep > 0 {
		if err := store.Prune(ctx, name, keep); err != nil {
			return 0, fmt.Errorf("prune snapshots: %w", err)
		}
	}
	return snap.Tick, nil
}
