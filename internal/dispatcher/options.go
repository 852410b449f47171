package dispatcher

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/actionflow/internal/guard"
	"github.com/dshills/actionflow/internal/pipeline"
	"github.com/dshills/actionflow/internal/store"
)

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithStores installs a shared store registry. Without this option the
// dispatcher creates its own.
func WithStores(r *store.Registry) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.stores = r
		}
	}
}

// WithLogger installs a structured logger. Without this option logging is
// disabled.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithKeyFunc installs the guard key derivation function. The default keys
// guard state by action name.
func WithKeyFunc(fn guard.KeyFunc) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.keyFn = fn
		}
	}
}

// WithBlockPredicate installs a predicate consulted on every dispatch in
// addition to manual blocks.
func WithBlockPredicate(p guard.BlockPredicate) Option {
	return func(d *Dispatcher) {
		d.blockPredicate = p
	}
}

// WithOnBlocked installs a callback invoked whenever a dispatch is
// blocked.
func WithOnBlocked(fn func(action, reason string)) Option {
	return func(d *Dispatcher) {
		d.onBlocked = fn
	}
}

// dispatchOptions hold per-dispatch overrides.
type dispatchOptions struct {
	mode           pipeline.Mode
	timeout        time.Duration
	collectResults bool
	requireHandler bool
}

// DispatchOption overrides dispatcher defaults for a single dispatch.
type DispatchOption func(*dispatchOptions)

// WithMode overrides the execution strategy for this dispatch.
func WithMode(m pipeline.Mode) DispatchOption {
	return func(o *dispatchOptions) {
		o.mode = m
	}
}

// WithTimeout bounds this dispatch. Zero disables the timeout.
func WithTimeout(d time.Duration) DispatchOption {
	return func(o *dispatchOptions) {
		o.timeout = d
	}
}

// WithCollectResults overrides result collection for this dispatch.
func WithCollectResults(enabled bool) DispatchOption {
	return func(o *dispatchOptions) {
		o.collectResults = enabled
	}
}

// WithRequireHandler makes a dispatch of an action with no registered
// handlers return an UnknownActionError instead of a neutral outcome.
func WithRequireHandler() DispatchOption {
	return func(o *dispatchOptions) {
		o.requireHandler = true
	}
}
