package pipeline

import "fmt"

// Status indicates the outcome of a single handler.
type Status uint8

const (
	// StatusOK indicates successful execution.
	StatusOK Status = iota
	// StatusNoOp indicates the handler had no effect.
	StatusNoOp
	// StatusError indicates the handler failed.
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoOp:
		return "no-op"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one handler invocation.
type Result struct {
	// Status indicates the result status.
	Status Status

	// Err contains the handler error when Status is StatusError.
	Err error

	// Value is the handler's return value, collected into the run's
	// results when result collection is enabled.
	Value any

	// HasValue distinguishes an intentional nil value from no value.
	HasValue bool
}

// IsError returns true if the result indicates a failure.
func (r Result) IsError() bool {
	return r.Status == StatusError
}

// Success creates a successful result without a value.
func Success() Result {
	return Result{Status: StatusOK}
}

// SuccessWith creates a successful result carrying a value.
func SuccessWith(v any) Result {
	return Result{Status: StatusOK, Value: v, HasValue: true}
}

// NoOp creates a result indicating the handler chose to do nothing.
func NoOp() Result {
	return Result{Status: StatusNoOp}
}

// Error creates an error result.
func Error(err error) Result {
	return Result{Status: StatusError, Err: err}
}

// Errorf creates an error result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Err: fmt.Errorf(format, args...)}
}

// Outcome is the caller-facing result of one dispatch.
type Outcome struct {
	// Success is false when a blocking sequential handler failed, any
	// parallel handler failed, the race winner failed, or the run was
	// aborted. Non-blocking sequential handler errors never clear it.
	Success bool

	// Results holds collected handler values, in settle order.
	Results []any

	// Aborted is true when a handler aborted the run.
	Aborted bool

	// AbortReason carries the reason passed to Abort.
	AbortReason string

	// Errors holds handler errors observed before the run settled.
	// Non-blocking handlers that settle later report only through the
	// action:error lifecycle event.
	Errors []error

	// Blocked is true when the guard rejected the dispatch before the
	// pipeline was built.
	Blocked bool

	// BlockReason carries the guard's reason.
	BlockReason string

	// Executed lists the IDs of handlers that were invoked (or launched).
	// Skipped handlers do not appear; the dispatcher uses this list to
	// prune once-handlers.
	Executed []string
}
