package guard

import (
	"sync"
	"time"
)

// KeyFunc derives a guard key from an action name and payload.
type KeyFunc func(action string, payload any) string

// DefaultKeyFunc keys guard state by action name.
func DefaultKeyFunc(action string, _ any) string {
	return action
}

// BlockPredicate decides whether a dispatch should be blocked and why.
// It is consulted in addition to manual Block calls.
type BlockPredicate func(action string, payload any) (blocked bool, reason string)

// FireFunc receives the payload of a deferred invocation when its timer
// expires.
type FireFunc func(payload any)

// state tracks timing for one key.
type state struct {
	last time.Time

	debounceTimer   *time.Timer
	debouncePayload any

	trailingTimer   *time.Timer
	trailingPayload any

	blocked     bool
	blockReason string
}

// Guard holds per-key timing and blocking state.
// It is safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	states map[string]*state

	predicate BlockPredicate
	onBlocked func(action, reason string)
}

// Option configures a Guard.
type Option func(*Guard)

// WithBlockPredicate installs a predicate consulted on every block check.
func WithBlockPredicate(p BlockPredicate) Option {
	return func(g *Guard) {
		g.predicate = p
	}
}

// WithOnBlocked installs a callback invoked whenever a call is blocked.
func WithOnBlocked(fn func(action, reason string)) Option {
	return func(g *Guard) {
		g.onBlocked = fn
	}
}

// New creates a guard.
func New(opts ...Option) *Guard {
	g := &Guard{
		states: make(map[string]*state),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// get returns the state for a key, creating it if needed.
// Caller must hold g.mu.
func (g *Guard) get(key string) *state {
	st := g.states[key]
	if st == nil {
		st = &state{}
		g.states[key] = st
	}
	return st
}

// Block marks a key as blocked until Unblock is called.
func (g *Guard) Block(key, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.get(key)
	st.blocked = true
	st.blockReason = reason
}

// Unblock clears a manual block.
func (g *Guard) Unblock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if st := g.states[key]; st != nil {
		st.blocked = false
		st.blockReason = ""
	}
}

// CheckBlock reports whether a dispatch is blocked, consulting the manual
// block first and then the injected predicate. When blocked, the OnBlocked
// callback is invoked.
func (g *Guard) CheckBlock(key, action string, payload any) (bool, string) {
	g.mu.Lock()
	st := g.states[key]
	var blocked bool
	var reason string
	if st != nil && st.blocked {
		blocked = true
		reason = st.blockReason
	}
	onBlocked := g.onBlocked
	predicate := g.predicate
	g.mu.Unlock()

	if !blocked && predicate != nil {
		blocked, reason = predicate(action, payload)
	}

	if blocked && onBlocked != nil {
		onBlocked(action, reason)
	}
	return blocked, reason
}

// IsBlocked reports the manual block state without consulting the predicate
// or invoking callbacks.
func (g *Guard) IsBlocked(key string) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.states[key]
	if st == nil {
		return false, ""
	}
	return st.blocked, st.blockReason
}

// CanExecute reports whether a throttled call may pass: true when at least
// interval has elapsed since the last recorded execution. It does not
// mutate state.
func (g *Guard) CanExecute(key string, interval time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.states[key]
	if st == nil || st.last.IsZero() {
		return true
	}
	return time.Since(st.last) >= interval
}

// MarkExecuted records an execution timestamp for throttle accounting.
func (g *Guard) MarkExecuted(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.get(key).last = time.Now()
}

// Debounce defers an invocation: the payload is stored and the timer is
// (re)scheduled for interval from now. Earlier pending payloads for the key
// are discarded, last call wins. When the timer expires, fire receives the
// most recent payload and the debounce state is cleared.
func (g *Guard) Debounce(key string, interval time.Duration, payload any, fire FireFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.get(key)
	st.debouncePayload = payload

	if st.debounceTimer != nil {
		st.debounceTimer.Reset(interval)
		return
	}

	st.debounceTimer = time.AfterFunc(interval, func() {
		g.mu.Lock()
		st := g.states[key]
		if st == nil || st.debounceTimer == nil {
			g.mu.Unlock()
			return
		}
		p := st.debouncePayload
		st.debounceTimer = nil
		st.debouncePayload = nil
		st.last = time.Now()
		g.mu.Unlock()

		fire(p)
	})
}

// Throttle applies a leading-edge throttle. It returns true when the call
// may execute now (and records the execution). Suppressed calls return
// false; when trailing is set, at most one deferred invocation is scheduled
// for the end of the window, carrying the most recent suppressed payload.
func (g *Guard) Throttle(key string, interval time.Duration, trailing bool, payload any, fire FireFunc) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.get(key)
	now := time.Now()

	if st.last.IsZero() || now.Sub(st.last) >= interval {
		st.last = now
		return true
	}

	if !trailing {
		return false
	}

	st.trailingPayload = payload
	if st.trailingTimer == nil {
		remaining := interval - now.Sub(st.last)
		st.trailingTimer = time.AfterFunc(remaining, func() {
			g.mu.Lock()
			st := g.states[key]
			if st == nil || st.trailingTimer == nil {
				g.mu.Unlock()
				return
			}
			p := st.trailingPayload
			st.trailingTimer = nil
			st.trailingPayload = nil
			st.last = time.Now()
			g.mu.Unlock()

			fire(p)
		})
	}
	return false
}

// HasPending reports whether the key has a pending debounce or trailing
// throttle timer.
func (g *Guard) HasPending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.states[key]
	if st == nil {
		return false
	}
	return st.debounceTimer != nil || st.trailingTimer != nil
}

// Reset clears all state for a key, cancelling any pending timers.
func (g *Guard) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.states[key]
	if st == nil {
		return
	}
	if st.debounceTimer != nil {
		st.debounceTimer.Stop()
	}
	if st.trailingTimer != nil {
		st.trailingTimer.Stop()
	}
	delete(g.states, key)
}

// ResetAll clears every key.
func (g *Guard) ResetAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, st := range g.states {
		if st.debounceTimer != nil {
			st.debounceTimer.Stop()
		}
		if st.trailingTimer != nil {
			st.trailingTimer.Stop()
		}
	}
	g.states = make(map[string]*state)
}
