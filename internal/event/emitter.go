package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Emitter delivers lifecycle events to registered listeners.
// It is safe for concurrent use.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[Kind]map[string]Handler

	// onPanic, when set, receives panics recovered from listeners.
	onPanic func(*ListenerPanicError)
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithPanicObserver sets a callback invoked when a listener panics.
// Panics are always recovered; without an observer they are dropped.
func WithPanicObserver(fn func(*ListenerPanicError)) EmitterOption {
	return func(e *Emitter) {
		e.onPanic = fn
	}
}

// NewEmitter creates an emitter with no listeners.
func NewEmitter(opts ...EmitterOption) *Emitter {
	e := &Emitter{
		listeners: make(map[Kind]map[string]Handler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// On registers a listener for an event kind and returns a removal closure.
// The closure is idempotent.
func (e *Emitter) On(kind Kind, h Handler) (func(), error) {
	if h == nil {
		return nil, ErrNilHandler
	}

	id := uuid.New().String()

	e.mu.Lock()
	set := e.listeners[kind]
	if set == nil {
		set = make(map[string]Handler)
		e.listeners[kind] = set
	}
	set[id] = h
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.remove(kind, id)
		})
	}, nil
}

// remove deletes a listener and drops the kind's set when it empties.
func (e *Emitter) remove(kind Kind, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	set := e.listeners[kind]
	if set == nil {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(e.listeners, kind)
	}
}

// Emit delivers an event to all listeners of its kind synchronously.
// A listener panic is recovered and does not prevent remaining listeners
// from running. A zero Time is filled with the current time.
func (e *Emitter) Emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	e.mu.RLock()
	set := e.listeners[ev.Kind]
	handlers := make([]Handler, 0, len(set))
	for _, h := range set {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		e.safeCall(h, ev)
	}
}

// safeCall invokes a listener with panic recovery.
func (e *Emitter) safeCall(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			if e.onPanic != nil {
				e.onPanic(&ListenerPanicError{Kind: ev.Kind, Value: r})
			}
		}
	}()
	h(ev)
}

// ListenerCount returns the number of listeners for a kind.
func (e *Emitter) ListenerCount(kind Kind) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[kind])
}

// KindCount returns the number of kinds with at least one listener.
func (e *Emitter) KindCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
