// Package pipeline executes the handlers registered for one dispatched
// action.
//
// A pipeline run moves through Pending -> Running -> one of Completed,
// Aborted or Errored. Three strategies are supported:
//
//   - Sequential: handlers run in priority order. Blocking handlers run in
//     the dispatch goroutine and their errors halt the remainder.
//     Non-blocking handlers are launched without being awaited.
//   - Parallel: every eligible handler starts concurrently; the run settles
//     when all handlers settle. Partial failures are collected, never fatal
//     to siblings.
//   - Race: every eligible handler starts concurrently; the first to settle
//     wins. Losers keep running and may still mutate stores, but their
//     return values are discarded.
//
// Each handler receives a Context, the flow-control object: abort, payload
// inspection and replacement, priority jumps, result accumulation and lazy
// store access. Abort is a checked flag inspected between sequential steps;
// an already-running handler is never preempted. Callers needing a hard
// deadline must honor ctx cancellation inside their handlers.
package pipeline
