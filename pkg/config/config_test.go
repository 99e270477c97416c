package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conduit.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Simulation.TickRate != 20 {
		t.Fatalf("expected tick rate 20, got %v", cfg.Simulation.TickRate)
	}
	if cfg.Simulation.TickInterval() != 50*time.Millisecond {
		t.Fatalf("expected 50ms interval, got %v", cfg.Simulation.TickInterval())
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if got := cfg.Simulation.EffectivePhysics(); got != pipe.DefaultPhysics() {
		t.Fatalf("expected default physics, got %+v", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
simulation:
  name: factory
  tick_rate: 10
  seed: 42
  physics:
    drag: 0
    capacity: 64
layout:
  file: layout.yaml
  watch: true
storage:
  driver: SQLite
  path: snapshots.db
logging:
  level: DEBUG
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Simulation.Name != "factory" || cfg.Simulation.Seed != 42 {
		t.Fatalf("unexpected simulation section: %+v", cfg.Simulation)
	}
	physics := cfg.Simulation.EffectivePhysics()
	if physics.Drag != 0 || physics.Capacity != 64 {
		t.Fatalf("physics overrides not applied: %+v", physics)
	}
	if physics.MaxSpeed != pipe.DefaultMaxSpeed {
		t.Fatalf("unset constants should keep defaults, got %v", physics.MaxSpeed)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("driver should be normalised, got %q", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level should be normalised, got %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Address != ":9464" {
		t.Fatalf("default metrics address lost, got %q", cfg.Metrics.Address)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
simulation:
  seed: 7
`)
	t.Setenv("CONDUIT_SIM_SEED", "99")
	t.Setenv("CONDUIT_SIM_PHYSICS_MAX_SPEED", "0.5")
	t.Setenv("CONDUIT_STORAGE_DRIVER", "sqlite")
	t.Setenv("CONDUIT_STORAGE_PATH", "/tmp/conduit.db")
	t.Setenv("CONDUIT_LOG_LEVEL", "warn")
	t.Setenv("CONDUIT_OTLP_ENVIRONMENT", "staging")
	t.Setenv("CONDUIT_OTLP_RESOURCE_TAGS", "team:logistics,region:eu")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Simulation.Seed != 99 {
		t.Fatalf("expected env seed 99, got %d", cfg.Simulation.Seed)
	}
	if got := cfg.Simulation.EffectivePhysics().MaxSpeed; got != 0.5 {
		t.Fatalf("expected max speed 0.5, got %v", got)
	}
	if cfg.Storage.Path != "/tmp/conduit.db" {
		t.Fatalf("expected storage path override, got %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected warn, got %q", cfg.Logging.Level)
	}
	if cfg.Telemetry.Environment != "staging" {
		t.Fatalf("expected staging, got %q", cfg.Telemetry.Environment)
	}
	if got := cfg.Telemetry.ResourceTags["region"]; got != "eu" || len(cfg.Telemetry.ResourceTags) != 2 {
		t.Fatalf("expected two resource tags with region eu, got %v", cfg.Telemetry.ResourceTags)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"tick rate":      "simulation:\n  tick_rate: 0\n",
		"random chance":  "simulation:\n  random_tick_chance: 2\n",
		"drag":           "simulation:\n  physics:\n    drag: 1\n",
		"sqlite no path": "storage:\n  driver: sqlite\n",
		"driver":         "storage:\n  driver: postgres\n",
		"watch no file":  "layout:\n  watch: true\n",
		"metrics":        "metrics:\n  address: nope\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			if !errors.Is(err, domain.ErrConfigInvalid) {
				t.Fatalf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	if _, err := Load(writeConfig(t, "logging:\n  level: loud\n")); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
