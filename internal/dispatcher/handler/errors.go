package handler

import "errors"

// Registration validation errors.
var (
	// ErrNilHandler indicates a nil handler function.
	ErrNilHandler = errors.New("handler: handler function cannot be nil")

	// ErrNegativeDebounce indicates a negative debounce interval.
	ErrNegativeDebounce = errors.New("handler: debounce interval cannot be negative")

	// ErrNegativeThrottle indicates a negative throttle interval.
	ErrNegativeThrottle = errors.New("handler: throttle interval cannot be negative")

	// ErrConflictingGuards indicates both debounce and throttle were set.
	ErrConflictingGuards = errors.New("handler: debounce and throttle are mutually exclusive")

	// ErrTrailingWithoutThrottle indicates trailing mode without a throttle
	// interval.
	ErrTrailingWithoutThrottle = errors.New("handler: trailing throttle requires a throttle interval")
)
