package event_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/dshills/actionflow/internal/event"
)

func TestOnAndEmit(t *testing.T) {
	em := event.NewEmitter()

	var got []event.Event
	_, err := em.On(event.KindActionStart, func(ev event.Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("On failed: %v", err)
	}

	em.Emit(event.Event{Kind: event.KindActionStart, Action: "save"})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Action != "save" {
		t.Errorf("expected action 'save', got %q", got[0].Action)
	}
	if got[0].Time.IsZero() {
		t.Error("expected emitter to stamp event time")
	}
}

func TestNilHandler(t *testing.T) {
	em := event.NewEmitter()

	_, err := em.On(event.KindActionStart, nil)
	if !errors.Is(err, event.ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestEmitOnlyMatchingKind(t *testing.T) {
	em := event.NewEmitter()

	var startCount, completeCount int
	_, _ = em.On(event.KindActionStart, func(event.Event) { startCount++ })
	_, _ = em.On(event.KindActionComplete, func(event.Event) { completeCount++ })

	em.Emit(event.Event{Kind: event.KindActionComplete, Action: "save"})

	if startCount != 0 {
		t.Errorf("expected 0 start events, got %d", startCount)
	}
	if completeCount != 1 {
		t.Errorf("expected 1 complete event, got %d", completeCount)
	}
}

func TestUnregister(t *testing.T) {
	em := event.NewEmitter()

	count := 0
	off, _ := em.On(event.KindActionError, func(event.Event) { count++ })

	em.Emit(event.Event{Kind: event.KindActionError})
	off()
	off() // idempotent
	em.Emit(event.Event{Kind: event.KindActionError})

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
}

func TestEmptySetRemoved(t *testing.T) {
	em := event.NewEmitter()

	off1, _ := em.On(event.KindActionAbort, func(event.Event) {})
	off2, _ := em.On(event.KindActionAbort, func(event.Event) {})

	if em.ListenerCount(event.KindActionAbort) != 2 {
		t.Fatalf("expected 2 listeners, got %d", em.ListenerCount(event.KindActionAbort))
	}

	off1()
	off2()

	if em.ListenerCount(event.KindActionAbort) != 0 {
		t.Errorf("expected 0 listeners after removal")
	}
	if em.KindCount() != 0 {
		t.Errorf("expected kind entry deleted when last listener removed, kinds=%d", em.KindCount())
	}
}

func TestPanicIsolation(t *testing.T) {
	var panics []*event.ListenerPanicError
	em := event.NewEmitter(event.WithPanicObserver(func(p *event.ListenerPanicError) {
		panics = append(panics, p)
	}))

	survived := false
	_, _ = em.On(event.KindActionStart, func(event.Event) { panic("boom") })
	_, _ = em.On(event.KindActionStart, func(event.Event) { survived = true })

	em.Emit(event.Event{Kind: event.KindActionStart})

	if !survived {
		t.Error("expected second listener to run despite first panicking")
	}
	if len(panics) != 1 {
		t.Fatalf("expected 1 recovered panic, got %d", len(panics))
	}
	if panics[0].Value != "boom" {
		t.Errorf("expected panic value 'boom', got %v", panics[0].Value)
	}
}

func TestConcurrentEmit(t *testing.T) {
	em := event.NewEmitter()

	var mu sync.Mutex
	count := 0
	_, _ = em.On(event.KindActionComplete, func(event.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			em.Emit(event.Event{Kind: event.KindActionComplete})
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("expected 50 deliveries, got %d", count)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind event.Kind
		want string
	}{
		{event.KindActionStart, "action:start"},
		{event.KindActionComplete, "action:complete"},
		{event.KindActionError, "action:error"},
		{event.KindActionAbort, "action:abort"},
		{event.KindGuardBlocked, "guard:blocked"},
		{event.Kind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
