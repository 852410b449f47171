package event

import "time"

// Kind identifies a lifecycle event type.
type Kind int

const (
	// KindActionStart fires when a dispatch reaches the pipeline.
	KindActionStart Kind = iota

	// KindActionComplete fires when a pipeline finishes successfully.
	KindActionComplete

	// KindActionError fires for each handler error, blocking or not.
	KindActionError

	// KindActionAbort fires when a handler aborts the pipeline.
	KindActionAbort

	// KindGuardBlocked fires when the guard rejects a dispatch before the
	// pipeline is built. No KindActionStart is emitted in that case.
	KindGuardBlocked
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case KindActionStart:
		return "action:start"
	case KindActionComplete:
		return "action:complete"
	case KindActionError:
		return "action:error"
	case KindActionAbort:
		return "action:abort"
	case KindGuardBlocked:
		return "guard:blocked"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification.
//
// Events are plain values; everything except Payload and Err is
// JSON-serializable, which is the contract external observers
// (logging, devtools bridges) rely on.
type Event struct {
	// Kind is the event type.
	Kind Kind

	// Action is the dispatched action name.
	Action string

	// Payload is a snapshot of the payload at emission time.
	Payload any

	// HandlerID identifies the handler for error events (empty otherwise).
	HandlerID string

	// Err is the handler error for KindActionError events.
	Err error

	// Reason carries the abort or block reason.
	Reason string

	// Time is when the event was emitted.
	Time time.Time
}

// Handler receives lifecycle events.
type Handler func(Event)
