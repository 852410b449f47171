// Package store provides reactive value containers and a named registry.
//
// A Store holds one mutable value with a monotonic version counter and a
// listener set notified synchronously on every change. With the immutable
// option, reads of reference-typed values return deep copies so a snapshot
// handed to a caller is never mutated in place by the store.
//
// The Registry is a named collection of stores with bulk export, import and
// reset. Export/Import exchange plain JSON-serializable maps keyed by store
// name, which is the contract external persistence adapters must honor.
//
// Handlers must read stores lazily: fetch values at invocation time through
// the registry passed in the execution context, never capture them at
// registration time. That is what keeps cross-store coordination correct.
package store
