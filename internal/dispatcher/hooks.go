package dispatcher

import "github.com/dshills/actionflow/internal/pipeline"

// PreDispatchHook runs before a pipeline is built. Returning false cancels
// the dispatch; no lifecycle events are emitted for a cancelled dispatch.
type PreDispatchHook interface {
	PreDispatch(action string, payload any) bool
}

// PreDispatchFunc adapts a function to PreDispatchHook.
type PreDispatchFunc func(action string, payload any) bool

// PreDispatch implements PreDispatchHook.
func (f PreDispatchFunc) PreDispatch(action string, payload any) bool {
	return f(action, payload)
}

// PostDispatchHook runs after a pipeline settles, with the final outcome.
type PostDispatchHook interface {
	PostDispatch(action string, payload any, out pipeline.Outcome)
}

// PostDispatchFunc adapts a function to PostDispatchHook.
type PostDispatchFunc func(action string, payload any, out pipeline.Outcome)

// PostDispatch implements PostDispatchHook.
func (f PostDispatchFunc) PostDispatch(action string, payload any, out pipeline.Outcome) {
	f(action, payload, out)
}

// AddPreDispatchHook appends a pre-dispatch hook. Hooks run in the order
// added; the first to return false cancels the dispatch.
func (d *Dispatcher) AddPreDispatchHook(h PreDispatchHook) {
	if h == nil {
		return
	}
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.preHooks = append(d.preHooks, h)
}

// AddPostDispatchHook appends a post-dispatch hook.
func (d *Dispatcher) AddPostDispatchHook(h PostDispatchHook) {
	if h == nil {
		return
	}
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.postHooks = append(d.postHooks, h)
}

// runPreHooks reports whether the dispatch may proceed.
func (d *Dispatcher) runPreHooks(action string, payload any) bool {
	d.hookMu.RLock()
	hooks := make([]PreDispatchHook, len(d.preHooks))
	copy(hooks, d.preHooks)
	d.hookMu.RUnlock()

	for _, h := range hooks {
		if !h.PreDispatch(action, payload) {
			return false
		}
	}
	return true
}

// runPostHooks delivers the settled outcome to every post-dispatch hook.
func (d *Dispatcher) runPostHooks(action string, payload any, out pipeline.Outcome) {
	d.hookMu.RLock()
	hooks := make([]PostDispatchHook, len(d.postHooks))
	copy(hooks, d.postHooks)
	d.hookMu.RUnlock()

	for _, h := range hooks {
		h.PostDispatch(action, payload, out)
	}
}
