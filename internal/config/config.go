// Package config loads typed configuration from TOML files and the
// environment. Values layer in precedence order: defaults, then the config
// file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/actionflow/internal/dispatcher"
	"github.com/dshills/actionflow/internal/logging"
	"github.com/dshills/actionflow/internal/pipeline"
)

// Config is the full application configuration.
type Config struct {
	Dispatch DispatchConfig `toml:"dispatch"`
	Logging  logging.Config `toml:"logging"`
	Scripts  ScriptConfig   `toml:"scripts"`
}

// DispatchConfig configures the dispatcher.
type DispatchConfig struct {
	// Mode is the default execution strategy: sequential, parallel or
	// race.
	Mode string `toml:"mode" env:"ACTIONFLOW_DISPATCH_MODE"`

	// CollectResults accumulates handler return values into outcomes.
	CollectResults bool `toml:"collect_results" env:"ACTIONFLOW_COLLECT_RESULTS"`

	// RecoverFromPanic converts handler panics into errors.
	RecoverFromPanic bool `toml:"recover_from_panic" env:"ACTIONFLOW_RECOVER_FROM_PANIC"`

	// EnableMetrics turns on per-action dispatch metrics.
	EnableMetrics bool `toml:"enable_metrics" env:"ACTIONFLOW_ENABLE_METRICS"`

	// Timeout bounds each dispatch, as a duration string such as "5s".
	// Empty means no timeout.
	Timeout string `toml:"timeout" env:"ACTIONFLOW_DISPATCH_TIMEOUT"`
}

// ScriptConfig configures the Lua scripting engine.
type ScriptConfig struct {
	// Dir is the directory of handler scripts loaded at startup. Empty
	// disables scripting.
	Dir string `toml:"dir" env:"ACTIONFLOW_SCRIPT_DIR"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Dispatch: DispatchConfig{
			Mode:             "sequential",
			CollectResults:   true,
			RecoverFromPanic: true,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the TOML file at path, and
// environment variables, in that order. A missing file is not an error;
// pass an empty path to skip file loading entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fall through to env
		case err != nil:
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if _, err := pipeline.ParseMode(c.Dispatch.Mode); err != nil {
		return fmt.Errorf("config: dispatch.mode: %w", err)
	}
	if c.Dispatch.Timeout != "" {
		if _, err := time.ParseDuration(c.Dispatch.Timeout); err != nil {
			return fmt.Errorf("config: dispatch.timeout: %w", err)
		}
	}
	return nil
}

// Dispatcher converts the dispatch section into a dispatcher config.
func (c Config) Dispatcher() (dispatcher.Config, error) {
	mode, err := pipeline.ParseMode(c.Dispatch.Mode)
	if err != nil {
		return dispatcher.Config{}, fmt.Errorf("config: dispatch.mode: %w", err)
	}

	var timeout time.Duration
	if c.Dispatch.Timeout != "" {
		timeout, err = time.ParseDuration(c.Dispatch.Timeout)
		if err != nil {
			return dispatcher.Config{}, fmt.Errorf("config: dispatch.timeout: %w", err)
		}
	}

	return dispatcher.DefaultConfig().
		WithDefaultMode(mode).
		WithCollectResults(c.Dispatch.CollectResults).
		WithPanicRecovery(c.Dispatch.RecoverFromPanic).
		WithMetrics(c.Dispatch.EnableMetrics).
		WithDefaultTimeout(timeout), nil
}
