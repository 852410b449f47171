package store

import (
	"sync"

	"github.com/google/uuid"
)

// Listener is notified with the new and previous value after every change.
type Listener func(next, previous any)

// listenerEntry preserves subscription order for deterministic notification.
type listenerEntry struct {
	id string
	fn Listener
}

// Store is a single reactive value container.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	name      string
	value     any
	initial   any
	version   uint64
	immutable bool
	listeners []listenerEntry
}

// Option configures a Store.
type Option func(*Store)

// WithImmutable enables copy-on-read: Get returns a deep copy for
// reference-typed values (primitives are returned directly).
func WithImmutable() Option {
	return func(s *Store) {
		s.immutable = true
	}
}

// New creates a store holding an initial value.
// The initial value is also what Reset restores.
func New(name string, initial any, opts ...Option) *Store {
	s := &Store{
		name:  name,
		value: initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Keep a private copy of the initial value so later mutation of the
	// caller's reference cannot change what Reset restores.
	s.initial = deepCopy(initial)
	return s
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// Get returns the current value. In immutable mode, reference-typed values
// are deep-copied.
func (s *Store) Get() any {
	s.mu.RLock()
	v := s.value
	immutable := s.immutable
	s.mu.RUnlock()

	if immutable && isReference(v) {
		return deepCopy(v)
	}
	return v
}

// Version returns the monotonic change counter.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set replaces the value, increments the version and notifies all listeners
// synchronously with (next, previous).
func (s *Store) Set(next any) {
	s.mu.Lock()
	previous := s.value
	s.value = next
	s.version++
	listeners := make([]listenerEntry, len(s.listeners))
	copy(listeners, s.listeners)
	immutable := s.immutable
	s.mu.Unlock()

	if immutable {
		if isReference(next) {
			next = deepCopy(next)
		}
		if isReference(previous) {
			previous = deepCopy(previous)
		}
	}

	// Notify outside the lock so listeners may read the store re-entrantly.
	for _, l := range listeners {
		l.fn(next, previous)
	}
}

// Update reads the current value (respecting immutability), applies fn and
// stores the result like Set.
func (s *Store) Update(fn func(current any) any) {
	s.Set(fn(s.Get()))
}

// Subscribe adds a listener and returns an idempotent removal closure.
// A single Set call notifies each subscription exactly once.
func (s *Store) Subscribe(l Listener) func() {
	id := uuid.New().String()

	s.mu.Lock()
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: l})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.unsubscribe(id)
		})
	}
}

func (s *Store) unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.listeners {
		if entry.id == id {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of active subscriptions.
func (s *Store) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// Reset restores the value captured at construction time.
func (s *Store) Reset() {
	s.mu.RLock()
	initial := s.initial
	s.mu.RUnlock()

	// Hand Set a fresh copy so repeated resets stay independent.
	if isReference(initial) {
		initial = deepCopy(initial)
	}
	s.Set(initial)
}
