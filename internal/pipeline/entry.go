package pipeline

import "context"

// HandlerFunc executes business logic for one action. The standard context
// carries cancellation and deadlines; the pipeline Context carries payload,
// flow control and store access.
type HandlerFunc func(ctx context.Context, exec *Context) Result

// Entry is an executable snapshot of one handler registration.
// The dispatcher builds the entry list per dispatch, sorted by descending
// priority with registration order breaking ties.
type Entry struct {
	// ID identifies the registration.
	ID string

	// Priority orders execution (higher runs first).
	Priority int

	// Blocking handlers are awaited in sequential mode; their errors halt
	// the remainder of the run.
	Blocking bool

	// Once handlers are pruned after their first attempted execution.
	Once bool

	// Condition, when set, must return true for the handler to run.
	// A false result skips the handler without consuming Once.
	Condition func(payload any) bool

	// Validate, when set, must return true for the handler to run.
	Validate func(payload any) bool

	// Run is the handler function.
	Run HandlerFunc
}

// eligible evaluates Condition and Validate against the current payload.
func (e Entry) eligible(payload any) bool {
	if e.Condition != nil && !e.Condition(payload) {
		return false
	}
	if e.Validate != nil && !e.Validate(payload) {
		return false
	}
	return true
}
