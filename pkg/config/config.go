// Package config provides configuration loading and validation for oracle-feeder.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file, expands environment variables and
// applies defaults. CLI flags are merged on top by the command layer.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	return &cfg, nil
}

// Default returns a configuration with only defaults applied, for flag-only runs.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyDefaults sets default values for optional fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Feeder.Denoms == "" {
		cfg.Feeder.Denoms = "all"
	}
	if cfg.Feeder.FeeDenom == "" {
		cfg.Feeder.FeeDenom = "uluna"
	}
	if cfg.Feeder.GasPrice == "" {
		cfg.Feeder.GasPrice = "0.015"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8532"
	}
	if cfg.Server.CacheTTL.ToDuration() == 0 {
		cfg.Server.CacheTTL = Duration(5 * 1e9) // 5 seconds
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
