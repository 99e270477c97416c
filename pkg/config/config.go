// Package config provides configuration structures and loading logic for the simulator.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONDUIT_"

// Config holds the global configuration for the simulator.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation" envPrefix:"SIM_"`
	Layout     LayoutConfig     `yaml:"layout" envPrefix:"LAYOUT_"`
	Storage    StorageConfig    `yaml:"storage" envPrefix:"STORAGE_"`
	Metrics    MetricsConfig    `yaml:"metrics" envPrefix:"METRICS_"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envPrefix:"OTLP_"`
	Logging    LoggingConfig    `yaml:"logging" envPrefix:"LOG_"`
}

// SimulationConfig controls the tick loop.
type SimulationConfig struct {
	Name             string          `yaml:"name" env:"NAME"`
	TickRate         float64         `yaml:"tick_rate" env:"TICK_RATE"`
	Seed             uint64          `yaml:"seed" env:"SEED"`
	RandomTickChance float64         `yaml:"random_tick_chance" env:"RANDOM_TICK_CHANCE"`
	SnapshotInterval uint64          `yaml:"snapshot_interval" env:"SNAPSHOT_INTERVAL"`
	SnapshotKeep     int             `yaml:"snapshot_keep" env:"SNAPSHOT_KEEP"`
	Physics          PhysicsOverride `yaml:"physics" envPrefix:"PHYSICS_"`
}

// PhysicsOverride replaces individual physics constants when set.
type PhysicsOverride struct {
	MinSpeed     *float64 `yaml:"min_speed" env:"MIN_SPEED"`
	MaxSpeed     *float64 `yaml:"max_speed" env:"MAX_SPEED"`
	Acceleration *float64 `yaml:"acceleration" env:"ACCELERATION"`
	Drag         *float64 `yaml:"drag" env:"DRAG"`
	Capacity     *int     `yaml:"capacity" env:"CAPACITY"`
}

// LayoutConfig names the layout document.
type LayoutConfig struct {
	File  string `yaml:"file" env:"FILE"`
	Watch bool   `yaml:"watch" env:"WATCH"`
}

// StorageConfig selects the snapshot store.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
}

// MetricsConfig holds the Prometheus listener.
type MetricsConfig struct {
	Address string `yaml:"address" env:"ADDRESS"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string            `yaml:"otlp_endpoint" env:"ENDPOINT"`
	Insecure     bool              `yaml:"insecure" env:"INSECURE"`
	ServiceName  string            `yaml:"service_name" env:"SERVICE_NAME"`
	Environment  string            `yaml:"environment" env:"ENVIRONMENT"`
	Headers      map[string]string `yaml:"headers" env:"HEADERS"`
	ResourceTags map[string]string `yaml:"resource_tags" env:"RESOURCE_TAGS"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PRETTY"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Name:             "default",
			TickRate:         20,
			Seed:             1,
			SnapshotInterval: 1200,
			SnapshotKeep:     10,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Metrics: MetricsConfig{
			Address: ":9464",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "conduit",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// EffectivePhysics returns the default physics with the configured overrides applied.
func (c *SimulationConfig) EffectivePhysics() pipe.Physics {
	return c.Physics.Apply(pipe.DefaultPhysics())
}

// Apply returns p with every set override replacing its constant.
func (o PhysicsOverride) Apply(p pipe.Physics) pipe.Physics {
	if o.MinSpeed != nil {
		p.MinSpeed = *o.MinSpeed
	}
	if o.MaxSpeed != nil {
		p.MaxSpeed = *o.MaxSpeed
	}
	if o.Acceleration != nil {
		p.Acceleration = *o.Acceleration
	}
	if o.Drag != nil {
		p.Drag = *o.Drag
	}
	if o.Capacity != nil {
		p.Capacity = *o.Capacity
	}
	return p
}

// TickInterval is the wall time between two steps.
func (c *SimulationConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.TickRate)
}

// Validate performs comprehensive validation of the entire configuration
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation configuration: %w", err)
	}

	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout configuration: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage configuration: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration: %w", err)
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry configuration: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}

	return nil
}

// Validate performs validation of simulation configuration
func (c *SimulationConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = "default"
	}
	if c.TickRate <= 0 || c.TickRate > 1000 {
		return fmt.Errorf("%w: tick_rate %v outside (0, 1000]", domain.ErrConfigInvalid, c.TickRate)
	}
	if c.RandomTickChance < 0 || c.RandomTickChance > 1 {
		return fmt.Errorf("%w: random_tick_chance %v outside [0, 1]", domain.ErrConfigInvalid, c.RandomTickChance)
	}
	if c.SnapshotKeep < 0 {
		return fmt.Errorf("%w: snapshot_keep must not be negative", domain.ErrConfigInvalid)
	}
	if err := c.EffectivePhysics().Validate(); err != nil {
		return fmt.Errorf("physics: %w", err)
	}
	return nil
}

// Validate performs validation of layout configuration
func (c *LayoutConfig) Validate() error {
	if c.Watch && strings.TrimSpace(c.File) == "" {
		return fmt.Errorf("%w: watch requires a layout file", domain.ErrConfigInvalid)
	}
	return nil
}

// Validate performs validation of storage configuration
func (c *StorageConfig) Validate() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", "memory":
		c.Driver = "memory"
		return nil
	case "sqlite":
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("%w: sqlite driver requires a path", domain.ErrConfigInvalid)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown storage driver %q, supported drivers: memory, sqlite", domain.ErrConfigInvalid, c.Driver)
	}
}

// Validate performs validation of metrics configuration
func (c *MetricsConfig) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("%w: metrics address %q: %v", domain.ErrConfigInvalid, c.Address, err)
	}
	return nil
}

// Validate performs validation of telemetry configuration
func (c *TelemetryConfig) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = "conduit"
	}
	return nil
}

// Validate performs validation of logging configuration
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}
