// Package action defines the action value dispatched through the pipeline.
package action

import "time"

// Action is a named operation with an optional payload.
type Action struct {
	// Name identifies the action (e.g., "document.save").
	Name string

	// Payload carries action-specific data. May be nil for payload-less actions.
	Payload any

	// Time is when the action was created.
	Time time.Time
}

// New creates an action with the current timestamp.
func New(name string, payload any) Action {
	return Action{
		Name:    name,
		Payload: payload,
		Time:    time.Now(),
	}
}

// HasPayload returns true if the action carries a payload.
func (a Action) HasPayload() bool {
	return a.Payload != nil
}

// PayloadAs extracts the payload as a concrete type.
// Returns the zero value and false when the payload is absent or of a
// different type.
func PayloadAs[T any](a Action) (T, bool) {
	v, ok := a.Payload.(T)
	return v, ok
}
