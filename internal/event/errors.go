package event

import "errors"

// Sentinel errors for the emitter.
var (
	// ErrNilHandler is returned when a nil handler is registered.
	ErrNilHandler = errors.New("event: handler cannot be nil")
)

// ListenerPanicError wraps a panic recovered from a listener.
type ListenerPanicError struct {
	// Kind is the event kind being delivered.
	Kind Kind

	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *ListenerPanicError) Error() string {
	return "event: listener panic during " + e.Kind.String()
}
