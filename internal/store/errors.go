package store

import "errors"

// Registry errors.
var (
	// ErrStoreExists is returned when creating a store under a taken name.
	ErrStoreExists = errors.New("store: store already exists")

	// ErrStoreNotFound is returned when a named store does not exist.
	ErrStoreNotFound = errors.New("store: store not found")

	// ErrInvalidSnapshot is returned when imported JSON is not an object.
	ErrInvalidSnapshot = errors.New("store: snapshot must be a JSON object")
)
