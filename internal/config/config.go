// Package config loads engine configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`

	// IdleAfter is how long a multi-step round may sit untouched before
	// the sweeper force-resolves it with the worst-case action.
	IdleAfter     time.Duration `yaml:"idle_after"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		DBPath:        "casino.db",
		IdleAfter:     15 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("15m",
// "90s") and leaves fields absent from the document untouched, so a
// partial file overlays the defaults.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ListenAddr    string `yaml:"listen_addr"`
		DBPath        string `yaml:"db_path"`
		IdleAfter     string `yaml:"idle_after"`
		SweepInterval string `yaml:"sweep_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.ListenAddr != "" {
		c.ListenAddr = raw.ListenAddr
	}
	if raw.DBPath != "" {
		c.DBPath = raw.DBPath
	}
	if raw.IdleAfter != "" {
		d, err := time.ParseDuration(raw.IdleAfter)
		if err != nil {
			return fmt.Errorf("idle_after: %w", err)
		}
		c.IdleAfter = d
	}
	if raw.SweepInterval != "" {
		d, err := time.ParseDuration(raw.SweepInterval)
		if err != nil {
			return fmt.Errorf("sweep_interval: %w", err)
		}
		c.SweepInterval = d
	}
	return nil
}

// Load reads path (if non-empty) over the defaults, then applies
// CASINO_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if v := os.Getenv("CASINO_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CASINO_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CASINO_IDLE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("CASINO_IDLE_AFTER: %w", err)
		}
		cfg.IdleAfter = d
	}
	if v := os.Getenv("CASINO_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("CASINO_SWEEP_INTERVAL: %w", err)
		}
		cfg.SweepInterval = d
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.IdleAfter <= 0 {
		return fmt.Errorf("idle_after must be positive, got %v", c.IdleAfter)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %v", c.SweepInterval)
	}
	return nil
}
