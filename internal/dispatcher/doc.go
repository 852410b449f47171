// Package dispatcher is the public façade of the action pipeline: handler
// registration, guarded dispatch, lifecycle events and metrics.
//
// A Dispatcher composes the handler registry, the guard (debounce, throttle,
// block), the pipeline executor and the lifecycle emitter around a shared
// store registry. Nothing is process-global: construct a Dispatcher once and
// pass it to consumers.
//
// Usage:
//
//	stores := store.NewRegistry()
//	d := dispatcher.New(dispatcher.DefaultConfig(), dispatcher.WithStores(stores))
//
//	off, err := d.Register("counter.add", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
//	    s, _ := exec.Stores().Get("counter")
//	    s.Update(func(cur any) any { return cur.(int) + exec.Payload().(int) })
//	    return pipeline.Success()
//	}, handler.Registration{Blocking: true})
//	if err != nil {
//	    // malformed registrations fail fast, at register time
//	}
//	defer off()
//
//	out, err := d.Dispatch(ctx, "counter.add", 2)
package dispatcher
