package pipeline

import (
	"sync"

	"github.com/dshills/actionflow/internal/store"
)

// Context is the flow-control object passed to every handler in a run.
// It is created per dispatch and discarded when the run settles.
//
// Store access through Stores() is deliberately lazy: handlers fetch values
// at invocation time so they always observe the freshest state, never a
// snapshot captured at registration.
type Context struct {
	mu sync.Mutex

	actionName string
	payload    any
	stores     *store.Registry

	aborted     bool
	abortReason string

	jumpPriority int
	jumpPending  bool

	results []any

	// lateErrors collects non-blocking handler errors that settle before
	// the run returns.
	lateErrors []error
}

// NewContext creates a run context.
func NewContext(actionName string, payload any, stores *store.Registry) *Context {
	return &Context{
		actionName: actionName,
		payload:    payload,
		stores:     stores,
	}
}

// ActionName returns the dispatched action name.
func (c *Context) ActionName() string {
	return c.actionName
}

// Payload returns the current payload. Handlers later in a sequential run
// observe replacements made by ModifyPayload.
func (c *Context) Payload() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload
}

// ModifyPayload replaces the payload for all subsequent handlers.
// Handlers already running keep whatever they read earlier.
func (c *Context) ModifyPayload(fn func(current any) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = fn(c.payload)
}

// Stores returns the store registry for lazy state access.
func (c *Context) Stores() *store.Registry {
	return c.stores
}

// Abort marks the run aborted. The sequential scheduler stops invoking
// further handlers; concurrent strategies only record the flag. Handlers
// already in flight are not cancelled.
func (c *Context) Abort(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aborted {
		return
	}
	c.aborted = true
	c.abortReason = reason
}

// Aborted reports the abort flag and reason.
func (c *Context) Aborted() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted, c.abortReason
}

// JumpToPriority requests that the sequential scheduler continue from the
// first handler whose priority is at most p. The jump takes effect after
// the current handler returns. It has no effect in parallel or race mode.
func (c *Context) JumpToPriority(p int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jumpPriority = p
	c.jumpPending = true
}

// takeJump consumes a pending jump request.
func (c *Context) takeJump() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.jumpPending {
		return 0, false
	}
	c.jumpPending = false
	return c.jumpPriority, true
}

// SetResult appends a value to the run's collected results.
func (c *Context) SetResult(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, v)
}

// Results returns a copy of the collected results so far.
func (c *Context) Results() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.results))
	copy(out, c.results)
	return out
}

// addLateError records a non-blocking handler error.
func (c *Context) addLateError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lateErrors = append(c.lateErrors, err)
}

// drainLateErrors returns the non-blocking errors observed so far.
func (c *Context) drainLateErrors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.lateErrors))
	copy(out, c.lateErrors)
	return out
}
