// Package event provides the typed lifecycle emitter for the dispatch
// pipeline.
//
// Unlike a general-purpose bus keyed by topic strings, the emitter is keyed
// by a closed set of event kinds (see Kind). Each kind has its own listener
// set; listeners are invoked synchronously with panic isolation so one
// failing listener never prevents the rest from running.
//
// Usage:
//
//	em := event.NewEmitter()
//	off, _ := em.On(event.KindActionComplete, func(ev event.Event) {
//	    log.Printf("%s completed", ev.Action)
//	})
//	defer off()
//
//	em.Emit(event.Event{Kind: event.KindActionComplete, Action: "save"})
package event
