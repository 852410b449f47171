package dispatcher

import (
	"time"

	"github.com/dshills/actionflow/internal/pipeline"
)

// Config holds dispatcher settings. Construct with DefaultConfig and
// customize with the With* methods; each returns a copy.
type Config struct {
	// DefaultMode is the execution strategy used when a dispatch does not
	// override it.
	DefaultMode pipeline.Mode

	// CollectResults enables accumulation of handler return values into
	// the dispatch outcome.
	CollectResults bool

	// RecoverFromPanic converts handler panics into handler errors
	// instead of crashing the process.
	RecoverFromPanic bool

	// EnableMetrics turns on per-action dispatch metrics.
	EnableMetrics bool

	// DefaultTimeout bounds a dispatch when the caller does not override
	// it. Zero means no timeout.
	DefaultTimeout time.Duration
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		DefaultMode:      pipeline.ModeSequential,
		CollectResults:   true,
		RecoverFromPanic: true,
		EnableMetrics:    false,
		DefaultTimeout:   0,
	}
}

// WithDefaultMode returns a copy with the default execution mode set.
func (c Config) WithDefaultMode(m pipeline.Mode) Config {
	c.DefaultMode = m
	return c
}

// WithCollectResults returns a copy with result collection set.
func (c Config) WithCollectResults(enabled bool) Config {
	c.CollectResults = enabled
	return c
}

// WithPanicRecovery returns a copy with panic recovery set.
func (c Config) WithPanicRecovery(enabled bool) Config {
	c.RecoverFromPanic = enabled
	return c
}

// WithMetrics returns a copy with metrics collection set.
func (c Config) WithMetrics(enabled bool) Config {
	c.EnableMetrics = enabled
	return c
}

// WithDefaultTimeout returns a copy with the default dispatch timeout set.
func (c Config) WithDefaultTimeout(d time.Duration) Config {
	c.DefaultTimeout = d
	return c
}
