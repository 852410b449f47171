package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrHandlerPanic marks an error produced by a recovered handler panic.
	ErrHandlerPanic = errors.New("pipeline: handler panic")

	// ErrDeadline marks a run cut short by context cancellation or timeout.
	ErrDeadline = errors.New("pipeline: deadline exceeded")
)

// HandlerError wraps a handler's error with the action and handler identity.
type HandlerError struct {
	// Action is the dispatched action name.
	Action string

	// HandlerID identifies the failing handler.
	HandlerID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("pipeline: handler %s for action %q: %v", e.HandlerID, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered handler panic.
type PanicError struct {
	// Action is the dispatched action name.
	Action string

	// HandlerID identifies the panicking handler.
	HandlerID string

	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("pipeline: handler %s for action %q panicked: %v", e.HandlerID, e.Action, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
