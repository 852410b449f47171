package dispatcher

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrEmptyAction indicates a registration or dispatch without an
	// action name.
	ErrEmptyAction = errors.New("dispatcher: action name cannot be empty")

	// ErrNoHandlers marks a strict dispatch of an action with no
	// registered handlers.
	ErrNoHandlers = errors.New("dispatcher: no handlers for action")
)

// UnknownActionError reports a strict dispatch that matched no handlers.
type UnknownActionError struct {
	// Action is the dispatched action name.
	Action string
}

// Error implements the error interface.
func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("dispatcher: no handlers registered for action %q", e.Action)
}

// Is allows errors.Is to match UnknownActionError with ErrNoHandlers.
func (e *UnknownActionError) Is(target error) bool {
	return target == ErrNoHandlers
}
