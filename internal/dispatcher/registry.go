package dispatcher

import (
	"sort"
	"sync"

	"github.com/dshills/actionflow/internal/dispatcher/handler"
)

// registration pairs a handler function with its configuration. seq
// preserves registration order so equal priorities run first-registered
// first.
type registration struct {
	fn  handler.Func
	reg handler.Registration
	seq uint64
}

// registry maps action names to their handler registrations, kept sorted
// by descending priority. It is safe for concurrent use.
type registry struct {
	mu      sync.RWMutex
	actions map[string][]*registration
	seq     uint64
}

func newRegistry() *registry {
	return &registry{
		actions: make(map[string][]*registration),
	}
}

// add inserts a registration and re-sorts the action's list.
func (r *registry) add(action string, fn handler.Func, reg handler.Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	list := append(r.actions[action], &registration{fn: fn, reg: reg, seq: r.seq})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].reg.Priority != list[j].reg.Priority {
			return list[i].reg.Priority > list[j].reg.Priority
		}
		return list[i].seq < list[j].seq
	})
	r.actions[action] = list
}

// remove deletes a registration by id. Returns true if found.
func (r *registry) remove(action, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.actions[action]
	for i, entry := range list {
		if entry.reg.ID == id {
			r.actions[action] = append(list[:i], list[i+1:]...)
			if len(r.actions[action]) == 0 {
				delete(r.actions, action)
			}
			return true
		}
	}
	return false
}

// get returns a registration by id.
func (r *registry) get(action, id string) (*registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.actions[action] {
		if entry.reg.ID == id {
			return entry, true
		}
	}
	return nil, false
}

// snapshot returns a copy of the action's registration list in execution
// order. Mutations after the snapshot do not affect an in-flight dispatch.
func (r *registry) snapshot(action string) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.actions[action]
	out := make([]*registration, len(list))
	copy(out, list)
	return out
}

// count returns the number of registrations for an action.
func (r *registry) count(action string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions[action])
}

// names returns the registered action names, sorted.
func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.actions))
	for name := range r.actions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// clear removes every registration.
func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = make(map[string][]*registration)
}
