package dispatcher

import (
	"sync"
	"time"
)

// ActionMetrics holds per-action dispatch statistics.
type ActionMetrics struct {
	// Name is the action name.
	Name string

	// DispatchCount is the number of dispatches that reached the pipeline.
	DispatchCount uint64

	// ErrorCount is the number of dispatches that settled with errors.
	ErrorCount uint64

	// AbortCount is the number of dispatches aborted by a handler.
	AbortCount uint64

	// BlockCount is the number of dispatches rejected by the guard.
	BlockCount uint64

	// TotalDuration is the accumulated pipeline time.
	TotalDuration time.Duration

	// MinDuration is the fastest dispatch.
	MinDuration time.Duration

	// MaxDuration is the slowest dispatch.
	MaxDuration time.Duration

	// LastDispatch is when the action was last dispatched.
	LastDispatch time.Time
}

// AverageDuration returns the mean pipeline time, or zero when the action
// has never been dispatched.
func (m *ActionMetrics) AverageDuration() time.Duration {
	if m.DispatchCount == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.DispatchCount)
}

// Metrics collects dispatch statistics. It is safe for concurrent use.
type Metrics struct {
	mu      sync.RWMutex
	actions map[string]*ActionMetrics

	totalDispatches uint64
	totalErrors     uint64
	totalAborts     uint64
	totalBlocked    uint64
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		actions: make(map[string]*ActionMetrics),
	}
}

// action returns the stats record for an action, creating it if needed.
// Caller must hold m.mu.
func (m *Metrics) action(name string) *ActionMetrics {
	stats := m.actions[name]
	if stats == nil {
		stats = &ActionMetrics{Name: name}
		m.actions[name] = stats
	}
	return stats
}

// RecordDispatch records a settled dispatch.
func (m *Metrics) RecordDispatch(name string, d time.Duration, failed, aborted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalDispatches++
	stats := m.action(name)
	stats.DispatchCount++
	stats.TotalDuration += d
	stats.LastDispatch = time.Now()
	if stats.MinDuration == 0 || d < stats.MinDuration {
		stats.MinDuration = d
	}
	if d > stats.MaxDuration {
		stats.MaxDuration = d
	}
	if failed {
		m.totalErrors++
		stats.ErrorCount++
	}
	if aborted {
		m.totalAborts++
		stats.AbortCount++
	}
}

// RecordBlocked records a guard rejection.
func (m *Metrics) RecordBlocked(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalBlocked++
	m.action(name).BlockCount++
}

// TotalDispatches returns the number of dispatches that reached the
// pipeline.
func (m *Metrics) TotalDispatches() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalDispatches
}

// TotalErrors returns the number of dispatches that settled with errors.
func (m *Metrics) TotalErrors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// TotalAborts returns the number of aborted dispatches.
func (m *Metrics) TotalAborts() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalAborts
}

// TotalBlocked returns the number of guard rejections.
func (m *Metrics) TotalBlocked() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalBlocked
}

// ActionStats returns a copy of one action's statistics.
func (m *Metrics) ActionStats(name string) (ActionMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.actions[name]
	if stats == nil {
		return ActionMetrics{}, false
	}
	return *stats, true
}

// Snapshot returns a copy of all per-action statistics keyed by action
// name.
func (m *Metrics) Snapshot() map[string]ActionMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]ActionMetrics, len(m.actions))
	for name, stats := range m.actions {
		out[name] = *stats
	}
	return out
}

// Reset clears all statistics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actions = make(map[string]*ActionMetrics)
	m.totalDispatches = 0
	m.totalErrors = 0
	m.totalAborts = 0
	m.totalBlocked = 0
}
