// Package guard gates dispatch attempts with timing and blocking rules.
//
// State is keyed by caller-supplied strings so distinct logical operations
// on the same action name can be guarded independently (the dispatcher uses
// the action name for blocks and "action/handlerID" for per-handler timing).
//
// Three gates are provided:
//
//   - Debounce: every gated call is deferred and resets the timer; when the
//     timer expires the most recent payload fires exactly once (trailing
//     edge, last call wins).
//   - Throttle: leading-edge gate; a call passes only when the configured
//     interval has elapsed since the last recorded execution. Trailing mode
//     schedules at most one deferred re-invocation carrying the most recent
//     suppressed payload.
//   - Block: manual Block/Unblock plus an optional injected predicate.
//     Blocked calls never reach the pipeline.
package guard
