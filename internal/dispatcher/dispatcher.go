package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/actionflow/internal/action"
	"github.com/dshills/actionflow/internal/dispatcher/handler"
	"github.com/dshills/actionflow/internal/event"
	"github.com/dshills/actionflow/internal/guard"
	"github.com/dshills/actionflow/internal/pipeline"
	"github.com/dshills/actionflow/internal/store"
)

// Dispatcher routes actions to registered handlers through the guard and
// the pipeline executor. It is safe for concurrent use.
type Dispatcher struct {
	config   Config
	registry *registry
	guard    *guard.Guard
	emitter  *event.Emitter
	stores   *store.Registry
	exec     *pipeline.Executor
	metrics  *Metrics
	log      zerolog.Logger
	keyFn    guard.KeyFunc

	blockPredicate guard.BlockPredicate
	onBlocked      func(action, reason string)

	hookMu    sync.RWMutex
	preHooks  []PreDispatchHook
	postHooks []PostDispatchHook
}

// New creates a dispatcher.
func New(config Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		config:   config,
		registry: newRegistry(),
		emitter:  event.NewEmitter(),
		log:      zerolog.Nop(),
		keyFn:    guard.DefaultKeyFunc,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.stores == nil {
		d.stores = store.NewRegistry()
	}

	var guardOpts []guard.Option
	if d.blockPredicate != nil {
		guardOpts = append(guardOpts, guard.WithBlockPredicate(d.blockPredicate))
	}
	if d.onBlocked != nil {
		guardOpts = append(guardOpts, guard.WithOnBlocked(d.onBlocked))
	}
	d.guard = guard.New(guardOpts...)

	d.exec = pipeline.NewExecutor(
		pipeline.WithPanicRecovery(config.RecoverFromPanic),
		pipeline.WithErrorSink(d.emitError),
	)

	if config.EnableMetrics {
		d.metrics = NewMetrics()
	}
	return d
}

// Events returns the lifecycle event emitter.
func (d *Dispatcher) Events() *event.Emitter {
	return d.emitter
}

// Stores returns the shared store registry.
func (d *Dispatcher) Stores() *store.Registry {
	return d.stores
}

// Metrics returns the metrics collector, or nil when metrics are disabled.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Register adds a handler for an action and returns an idempotent removal
// closure. Malformed registrations fail here, never at dispatch time.
func (d *Dispatcher) Register(action string, fn handler.Func, reg handler.Registration) (func(), error) {
	if action == "" {
		return nil, ErrEmptyAction
	}
	if err := handler.Check(fn, reg); err != nil {
		return nil, err
	}

	reg = reg.WithDefaults()
	d.registry.add(action, fn, reg)
	d.log.Debug().
		Str("action", action).
		Str("handler", reg.ID).
		Int("priority", reg.Priority).
		Msg("handler registered")

	var once sync.Once
	return func() {
		once.Do(func() {
			d.registry.remove(action, reg.ID)
		})
	}, nil
}

// Unregister removes a handler by id. Returns true if found.
func (d *Dispatcher) Unregister(action, id string) bool {
	return d.registry.remove(action, id)
}

// HandlerCount returns the number of handlers registered for an action.
func (d *Dispatcher) HandlerCount(action string) int {
	return d.registry.count(action)
}

// Actions returns the registered action names, sorted.
func (d *Dispatcher) Actions() []string {
	return d.registry.names()
}

// Clear removes every handler registration and all guard state.
func (d *Dispatcher) Clear() {
	d.registry.clear()
	d.guard.ResetAll()
}

// Block rejects future dispatches of an action until Unblock. The key is
// derived with a nil payload, so custom key functions that incorporate the
// payload should block through Guard directly.
func (d *Dispatcher) Block(action, reason string) {
	d.guard.Block(d.keyFn(action, nil), reason)
}

// Unblock clears a manual block.
func (d *Dispatcher) Unblock(action string) {
	d.guard.Unblock(d.keyFn(action, nil))
}

// Guard returns the underlying guard for direct key-level control.
func (d *Dispatcher) Guard() *guard.Guard {
	return d.guard
}

// Dispatch runs the action's handlers and returns the settled outcome.
//
// The error return is reserved for dispatch-level failures: an empty
// action name, or no registered handlers under WithRequireHandler. Handler
// failures are reported through the Outcome, not the error.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, payload any, opts ...DispatchOption) (pipeline.Outcome, error) {
	if action == "" {
		return pipeline.Outcome{}, ErrEmptyAction
	}

	o := dispatchOptions{
		mode:           d.config.DefaultMode,
		timeout:        d.config.DefaultTimeout,
		collectResults: d.config.CollectResults,
	}
	for _, opt := range opts {
		opt(&o)
	}

	regs := d.registry.snapshot(action)
	if len(regs) == 0 {
		if o.requireHandler {
			return pipeline.Outcome{}, &UnknownActionError{Action: action}
		}
		return pipeline.Outcome{Success: true}, nil
	}

	key := d.keyFn(action, payload)
	if blocked, reason := d.guard.CheckBlock(key, action, payload); blocked {
		d.emitter.Emit(event.Event{
			Kind:    event.KindGuardBlocked,
			Action:  action,
			Payload: payload,
			Reason:  reason,
		})
		if d.metrics != nil {
			d.metrics.RecordBlocked(action)
		}
		d.log.Debug().
			Str("action", action).
			Str("reason", reason).
			Msg("dispatch blocked")
		return pipeline.Outcome{Blocked: true, BlockReason: reason}, nil
	}

	// Timing gates run per registration: a debounced or throttled handler
	// drops out of this run and may fire later through the guard's timer,
	// while untimed handlers proceed immediately.
	entries := make([]pipeline.Entry, 0, len(regs))
	for _, r := range regs {
		timingKey := key + "/" + r.reg.ID
		switch {
		case r.reg.Debounce > 0:
			d.guard.Debounce(timingKey, r.reg.Debounce, payload, d.deferredFire(action, r.reg.ID, o))
		case r.reg.Throttle > 0:
			if d.guard.Throttle(timingKey, r.reg.Throttle, r.reg.TrailingThrottle, payload, d.deferredFire(action, r.reg.ID, o)) {
				entries = append(entries, toEntry(r))
			}
		default:
			entries = append(entries, toEntry(r))
		}
	}
	if len(entries) == 0 {
		// Every handler was deferred or suppressed by its timing gate.
		return pipeline.Outcome{Success: true}, nil
	}

	return d.run(ctx, action, payload, entries, o), nil
}

// DispatchAction dispatches a prebuilt action value.
func (d *Dispatcher) DispatchAction(ctx context.Context, a action.Action, opts ...DispatchOption) (pipeline.Outcome, error) {
	return d.Dispatch(ctx, a.Name, a.Payload, opts...)
}

// run executes prepared entries through the pipeline, emitting lifecycle
// events and recording metrics. Both immediate dispatches and deferred
// guard fires funnel through here.
func (d *Dispatcher) run(ctx context.Context, action string, payload any, entries []pipeline.Entry, o dispatchOptions) pipeline.Outcome {
	if !d.runPreHooks(action, payload) {
		return pipeline.Outcome{
			Aborted:     true,
			AbortReason: "cancelled by pre-dispatch hook",
		}
	}

	d.emitter.Emit(event.Event{
		Kind:    event.KindActionStart,
		Action:  action,
		Payload: payload,
	})

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	exec := pipeline.NewContext(action, payload, d.stores)
	out := d.exec.Execute(ctx, exec, entries, pipeline.Options{
		Mode:           o.mode,
		CollectResults: o.collectResults,
	})
	elapsed := time.Since(start)

	d.pruneOnce(action, entries, out.Executed)

	switch {
	case out.Aborted:
		d.emitter.Emit(event.Event{
			Kind:    event.KindActionAbort,
			Action:  action,
			Payload: exec.Payload(),
			Reason:  out.AbortReason,
		})
	default:
		d.emitter.Emit(event.Event{
			Kind:    event.KindActionComplete,
			Action:  action,
			Payload: exec.Payload(),
		})
	}

	if d.metrics != nil {
		d.metrics.RecordDispatch(action, elapsed, !out.Success, out.Aborted)
	}
	d.log.Debug().
		Str("action", action).
		Str("mode", o.mode.String()).
		Bool("success", out.Success).
		Int("errors", len(out.Errors)).
		Dur("elapsed", elapsed).
		Msg("dispatch settled")

	d.runPostHooks(action, exec.Payload(), out)
	return out
}

// deferredFire returns the guard callback that re-runs a single handler
// when its debounce or trailing throttle timer expires. The registration is
// looked up fresh at fire time so an unregistered handler never fires.
func (d *Dispatcher) deferredFire(action, id string, o dispatchOptions) guard.FireFunc {
	return func(payload any) {
		r, ok := d.registry.get(action, id)
		if !ok {
			return
		}
		run := o
		run.mode = pipeline.ModeSequential
		d.run(context.Background(), action, payload, []pipeline.Entry{toEntry(r)}, run)
	}
}

// pruneOnce removes once-registrations that were invoked in this run.
func (d *Dispatcher) pruneOnce(action string, entries []pipeline.Entry, executed []string) {
	if len(executed) == 0 {
		return
	}
	onceIDs := make(map[string]bool, len(entries))
	for _, ent := range entries {
		if ent.Once {
			onceIDs[ent.ID] = true
		}
	}
	for _, id := range executed {
		if onceIDs[id] {
			d.registry.remove(action, id)
		}
	}
}

// emitError is the executor's error sink. Every handler error, including
// non-blocking handlers and race losers, passes through here exactly once.
func (d *Dispatcher) emitError(handlerID string, err error) {
	ev := event.Event{
		Kind:      event.KindActionError,
		HandlerID: handlerID,
		Err:       err,
	}

	var herr *pipeline.HandlerError
	var perr *pipeline.PanicError
	switch {
	case errors.As(err, &herr):
		ev.Action = herr.Action
	case errors.As(err, &perr):
		ev.Action = perr.Action
	}

	d.emitter.Emit(ev)
	d.log.Error().
		Err(err).
		Str("action", ev.Action).
		Str("handler", handlerID).
		Msg("handler error")
}

// toEntry converts a registration into an executable pipeline entry.
func toEntry(r *registration) pipeline.Entry {
	return pipeline.Entry{
		ID:        r.reg.ID,
		Priority:  r.reg.Priority,
		Blocking:  r.reg.Blocking,
		Once:      r.reg.Once,
		Condition: r.reg.Condition,
		Validate:  r.reg.Validate,
		Run:       r.fn,
	}
}
