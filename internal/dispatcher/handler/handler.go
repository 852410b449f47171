// Package handler defines the handler registration configuration for the
// dispatcher.
package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/actionflow/internal/pipeline"
)

// Func is the handler function signature.
type Func = pipeline.HandlerFunc

// Registration configures one handler for one action. Defaults are applied
// once at registration time; the zero value is a valid configuration.
type Registration struct {
	// ID identifies the registration. Auto-generated when empty.
	ID string

	// Priority orders execution (higher runs first, default 0).
	Priority int

	// Blocking handlers are awaited in sequential mode; their errors halt
	// the remainder of the pipeline.
	Blocking bool

	// Once removes the registration after its first attempted execution.
	Once bool

	// Condition, when set, must return true for the handler to run.
	Condition func(payload any) bool

	// Validate, when set, must return true for the handler to run.
	Validate func(payload any) bool

	// Debounce defers execution until the interval passes without another
	// dispatch (trailing edge, last call wins).
	Debounce time.Duration

	// Throttle suppresses executions closer together than the interval
	// (leading edge).
	Throttle time.Duration

	// TrailingThrottle schedules one deferred execution with the most
	// recent suppressed payload at the end of a throttle window.
	TrailingThrottle bool
}

// WithDefaults returns a copy with defaults filled in.
func (r Registration) WithDefaults() Registration {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return r
}

// Check validates the configuration. It is called at registration time so
// malformed configs fail fast, never at dispatch time.
func Check(fn Func, r Registration) error {
	if fn == nil {
		return ErrNilHandler
	}
	if r.Debounce < 0 {
		return ErrNegativeDebounce
	}
	if r.Throttle < 0 {
		return ErrNegativeThrottle
	}
	if r.Debounce > 0 && r.Throttle > 0 {
		return ErrConflictingGuards
	}
	if r.TrailingThrottle && r.Throttle == 0 {
		return ErrTrailingWithoutThrottle
	}
	return nil
}
