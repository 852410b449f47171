package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation identifies a bulk registry operation.
type Operation int

const (
	// OpCreate indicates a store was created.
	OpCreate Operation = iota

	// OpRemove indicates a store was removed.
	OpRemove

	// OpImport indicates values were imported.
	OpImport

	// OpReset indicates all stores were reset.
	OpReset
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpImport:
		return "import"
	case OpReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Change describes a registry-level operation for observers.
type Change struct {
	// Op is the operation performed.
	Op Operation

	// Names lists the affected store names.
	Names []string

	// Time is when the operation completed.
	Time time.Time
}

// Observer receives registry-level changes.
type Observer func(Change)

// Registry is a named collection of stores.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	stores    map[string]*Store
	observers map[string]Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stores:    make(map[string]*Store),
		observers: make(map[string]Observer),
	}
}

// Create adds a store under a unique name.
func (r *Registry) Create(name string, initial any, opts ...Option) (*Store, error) {
	r.mu.Lock()
	if _, exists := r.stores[name]; exists {
		r.mu.Unlock()
		return nil, ErrStoreExists
	}
	s := New(name, initial, opts...)
	r.stores[name] = s
	r.mu.Unlock()

	r.notify(Change{Op: OpCreate, Names: []string{name}, Time: time.Now()})
	return s, nil
}

// Get returns a store by name, or ErrStoreNotFound.
func (r *Registry) Get(name string) (*Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[name]
	if !ok {
		return nil, ErrStoreNotFound
	}
	return s, nil
}

// Remove deletes a store by name. Returns false when absent.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	_, ok := r.stores[name]
	delete(r.stores, name)
	r.mu.Unlock()

	if ok {
		r.notify(Change{Op: OpRemove, Names: []string{name}, Time: time.Now()})
	}
	return ok
}

// Names returns all store names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the name-to-store map.
func (r *Registry) All() map[string]*Store {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Store, len(r.stores))
	for name, s := range r.stores {
		out[name] = s
	}
	return out
}

// Len returns the number of stores.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// Export returns current values keyed by store name.
func (r *Registry) Export() map[string]any {
	out := make(map[string]any)
	for name, s := range r.All() {
		out[name] = s.Get()
	}
	return out
}

// Import sets values for known store names and ignores unknown keys.
// It returns the keys that were skipped, sorted.
func (r *Registry) Import(values map[string]any) []string {
	var skipped []string
	var imported []string

	for name, value := range values {
		s, err := r.Get(name)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		s.Set(value)
		imported = append(imported, name)
	}
	sort.Strings(skipped)
	sort.Strings(imported)

	if len(imported) > 0 {
		r.notify(Change{Op: OpImport, Names: imported, Time: time.Now()})
	}
	return skipped
}

// ResetAll restores every store to its construction-time value.
func (r *Registry) ResetAll() {
	names := r.Names()
	for _, s := range r.All() {
		s.Reset()
	}
	r.notify(Change{Op: OpReset, Names: names, Time: time.Now()})
}

// Subscribe registers an observer for bulk operations and returns an
// idempotent removal closure.
func (r *Registry) Subscribe(fn Observer) func() {
	id := uuid.New().String()

	r.mu.Lock()
	r.observers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.observers, id)
			r.mu.Unlock()
		})
	}
}

// notify delivers a change to all observers.
func (r *Registry) notify(change Change) {
	r.mu.RLock()
	observers := make([]Observer, 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.mu.RUnlock()

	for _, fn := range observers {
		fn(change)
	}
}
