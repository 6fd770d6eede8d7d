// Package config provides configuration loading for tenantstate.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/tenantstate/internal/logging"
)

// Config is the root configuration for the tenantstate process.
type Config struct {
	Store   StoreConfig    `koanf:"store"`
	Logging logging.Config `koanf:"logging"`
	Metrics MetricsConfig  `koanf:"metrics"`
}

// StoreConfig tunes the state manager.
type StoreConfig struct {
	MaxMemoryMB       int `koanf:"max_memory_mb"`
	MaxAutoSnapshots  int `koanf:"max_auto_snapshots"`
	MaxNamedSnapshots int `koanf:"max_named_snapshots"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// NewDefaultConfig returns config with defaults applied.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			MaxMemoryMB:       100,
			MaxAutoSnapshots:  10,
			MaxNamedSnapshots: 50,
		},
		Logging: logging.NewDefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
	}
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Store.MaxMemoryMB == 0 {
		cfg.Store.MaxMemoryMB = defaults.Store.MaxMemoryMB
	}
	if cfg.Store.MaxAutoSnapshots == 0 {
		cfg.Store.MaxAutoSnapshots = defaults.Store.MaxAutoSnapshots
	}
	if cfg.Store.MaxNamedSnapshots == 0 {
		cfg.Store.MaxNamedSnapshots = defaults.Store.MaxNamedSnapshots
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = defaults.Metrics.Listen
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Store.MaxMemoryMB < 0 {
		return fmt.Errorf("store.max_memory_mb must be >= 0, got %d", c.Store.MaxMemoryMB)
	}
	if c.Store.MaxAutoSnapshots < 0 {
		return fmt.Errorf("store.max_auto_snapshots must be >= 0, got %d", c.Store.MaxAutoSnapshots)
	}
	if c.Store.MaxNamedSnapshots < 0 {
		return fmt.Errorf("store.max_named_snapshots must be >= 0, got %d", c.Store.MaxNamedSnapshots)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen required when metrics enabled")
	}
	return nil
}
