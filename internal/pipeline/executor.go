package pipeline

import (
	"context"
	"fmt"
)

// ErrorSink receives every handler error as it is observed, including
// errors from non-blocking handlers and race losers that never appear in
// the Outcome. The dispatcher wires this to the action:error lifecycle
// event.
type ErrorSink func(handlerID string, err error)

// Options configure one run.
type Options struct {
	// Mode selects the execution strategy.
	Mode Mode

	// CollectResults enables accumulation of handler return values into
	// the run's results.
	CollectResults bool
}

// Executor runs handler entries against a run context.
type Executor struct {
	recoverPanics bool
	sink          ErrorSink
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicRecovery controls whether handler panics are recovered into
// errors. Enabled by default.
func WithPanicRecovery(enabled bool) ExecutorOption {
	return func(e *Executor) {
		e.recoverPanics = enabled
	}
}

// WithErrorSink installs the error sink.
func WithErrorSink(sink ErrorSink) ExecutorOption {
	return func(e *Executor) {
		e.sink = sink
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{recoverPanics: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the entries under the given options and returns the settled
// outcome. Entries must already be sorted by descending priority.
func (e *Executor) Execute(ctx context.Context, exec *Context, entries []Entry, opts Options) Outcome {
	var out Outcome
	switch opts.Mode {
	case ModeParallel:
		out = e.runParallel(ctx, exec, entries, opts)
	case ModeRace:
		out = e.runRace(ctx, exec, entries, opts)
	default:
		out = e.runSequential(ctx, exec, entries, opts)
	}

	out.Results = exec.Results()
	return out
}

// runSequential executes handlers strictly in priority order.
func (e *Executor) runSequential(ctx context.Context, exec *Context, entries []Entry, opts Options) Outcome {
	out := Outcome{Success: true}

	idx := 0
	for idx < len(entries) {
		if aborted, _ := exec.Aborted(); aborted {
			break
		}
		if err := ctx.Err(); err != nil {
			out.Success = false
			out.Errors = append(out.Errors, fmt.Errorf("%w: %v", ErrDeadline, err))
			break
		}

		ent := entries[idx]
		if !ent.eligible(exec.Payload()) {
			idx++
			continue
		}

		out.Executed = append(out.Executed, ent.ID)

		if ent.Blocking {
			res := e.invoke(ctx, ent, exec)
			if res.IsError() {
				herr := e.wrap(exec.ActionName(), ent.ID, res.Err)
				out.Errors = append(out.Errors, herr)
				out.Success = false
				e.report(ent.ID, herr)
				break
			}
			if res.HasValue && opts.CollectResults {
				exec.SetResult(res.Value)
			}
		} else {
			go e.runDetached(ctx, ent, exec, opts)
		}

		if jump, ok := exec.takeJump(); ok {
			idx = firstIndexAtOrBelow(entries, jump)
		} else {
			idx++
		}
	}

	if aborted, reason := exec.Aborted(); aborted {
		out.Aborted = true
		out.AbortReason = reason
		out.Success = false
	}

	// Non-blocking errors observed so far ride along in the outcome; they
	// do not fail the run.
	out.Errors = append(out.Errors, exec.drainLateErrors()...)
	return out
}

// runParallel starts every eligible handler together and settles when all
// handlers settle.
func (e *Executor) runParallel(ctx context.Context, exec *Context, entries []Entry, opts Options) Outcome {
	out := Outcome{Success: true}

	payload := exec.Payload()
	eligible := filterEligible(entries, payload)
	if len(eligible) == 0 {
		return out
	}

	results := make(chan settledResult, len(eligible))
	for _, ent := range eligible {
		out.Executed = append(out.Executed, ent.ID)
		go func(ent Entry) {
			results <- settledResult{id: ent.ID, res: e.invoke(ctx, ent, exec)}
		}(ent)
	}

	for range eligible {
		settled := <-results
		if settled.res.IsError() {
			herr := e.wrap(exec.ActionName(), settled.id, settled.res.Err)
			out.Errors = append(out.Errors, herr)
			e.report(settled.id, herr)
			continue
		}
		if settled.res.HasValue && opts.CollectResults {
			exec.SetResult(settled.res.Value)
		}
	}

	if aborted, reason := exec.Aborted(); aborted {
		out.Aborted = true
		out.AbortReason = reason
	}
	out.Success = len(out.Errors) == 0 && !out.Aborted
	return out
}

// runRace starts every eligible handler together and settles with the
// first finisher. Losers are not cancelled: their side effects land
// whenever they complete, but their values are discarded. Loser errors are
// reported through the error sink only.
func (e *Executor) runRace(ctx context.Context, exec *Context, entries []Entry, opts Options) Outcome {
	out := Outcome{Success: true}

	payload := exec.Payload()
	eligible := filterEligible(entries, payload)
	if len(eligible) == 0 {
		return out
	}

	results := make(chan settledResult, len(eligible))
	for _, ent := range eligible {
		out.Executed = append(out.Executed, ent.ID)
		go func(ent Entry) {
			results <- settledResult{id: ent.ID, res: e.invoke(ctx, ent, exec)}
		}(ent)
	}

	winner := <-results
	if winner.res.IsError() {
		herr := e.wrap(exec.ActionName(), winner.id, winner.res.Err)
		out.Errors = append(out.Errors, herr)
		out.Success = false
		e.report(winner.id, herr)
	} else if winner.res.HasValue && opts.CollectResults {
		exec.SetResult(winner.res.Value)
	}

	// Drain losers off the settle channel so their goroutines can exit;
	// surface their errors for observability only.
	losers := len(eligible) - 1
	if losers > 0 {
		go func() {
			for i := 0; i < losers; i++ {
				settled := <-results
				if settled.res.IsError() {
					e.report(settled.id, e.wrap(exec.ActionName(), settled.id, settled.res.Err))
				}
			}
		}()
	}

	if aborted, reason := exec.Aborted(); aborted {
		out.Aborted = true
		out.AbortReason = reason
		out.Success = false
	}
	return out
}

// settledResult pairs a handler id with its result.
type settledResult struct {
	id  string
	res Result
}

// runDetached executes a non-blocking handler outside the scheduler.
func (e *Executor) runDetached(ctx context.Context, ent Entry, exec *Context, opts Options) {
	res := e.invoke(ctx, ent, exec)
	if res.IsError() {
		herr := e.wrap(exec.ActionName(), ent.ID, res.Err)
		exec.addLateError(herr)
		e.report(ent.ID, herr)
		return
	}
	if res.HasValue && opts.CollectResults {
		exec.SetResult(res.Value)
	}
}

// invoke runs a single handler, recovering panics when configured.
func (e *Executor) invoke(ctx context.Context, ent Entry, exec *Context) (res Result) {
	if e.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				res = Error(&PanicError{
					Action:    exec.ActionName(),
					HandlerID: ent.ID,
					Value:     r,
				})
			}
		}()
	}

	if ent.Run == nil {
		return Errorf("handler %s is nil", ent.ID)
	}
	return ent.Run(ctx, exec)
}

// wrap decorates a handler error unless it is already a pipeline error.
func (e *Executor) wrap(action, handlerID string, err error) error {
	switch err.(type) {
	case *HandlerError, *PanicError:
		return err
	default:
		return &HandlerError{Action: action, HandlerID: handlerID, Err: err}
	}
}

// report delivers an error to the sink if one is configured.
func (e *Executor) report(handlerID string, err error) {
	if e.sink != nil {
		e.sink(handlerID, err)
	}
}

// filterEligible evaluates conditions against the payload snapshot.
func filterEligible(entries []Entry, payload any) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, ent := range entries {
		if ent.eligible(payload) {
			out = append(out, ent)
		}
	}
	return out
}

// firstIndexAtOrBelow returns the index of the first entry whose priority
// is at most p. Entries are sorted by descending priority.
func firstIndexAtOrBelow(entries []Entry, p int) int {
	for i, ent := range entries {
		if ent.Priority <= p {
			return i
		}
	}
	return len(entries)
}
