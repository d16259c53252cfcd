package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix. Nested sections add their own
// name, e.g. CAPSULE_KERNEL_MEMORY_SIZE or CAPSULE_LOGGING_LEVEL.
const Prefix = "capsule"

// Config holds all host configuration.
type Config struct {
	Kernel  KernelConfig
	Logging LogConfig
	Console ConsoleConfig
	Metrics MetricsConfig
}

// KernelConfig sizes processes and sets the fault policy.
type KernelConfig struct {
	MemorySize  int    `envconfig:"MEMORY_SIZE" default:"4096"`
	GrantSize   int    `envconfig:"GRANT_SIZE" default:"1024"`
	FaultPolicy string `envconfig:"FAULT_POLICY" default:"restart"`
	MaxRestarts int    `envconfig:"MAX_RESTARTS" default:"3"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

// ConsoleConfig controls the framebuffer console sink.
type ConsoleConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"false"`
	Width   int  `envconfig:"WIDTH" default:"320"`
	Height  int  `envconfig:"HEIGHT" default:"240"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `envconfig:"ADDR" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Kernel: KernelConfig{
			MemorySize:  4096,
			GrantSize:   1024,
			FaultPolicy: "restart",
			MaxRestarts: 3,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Console: ConsoleConfig{
			Width:  320,
			Height: 240,
		},
	}
}
