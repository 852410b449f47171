package dispatcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/actionflow/internal/action"
	"github.com/dshills/actionflow/internal/dispatcher"
	"github.com/dshills/actionflow/internal/dispatcher/handler"
	"github.com/dshills/actionflow/internal/event"
	"github.com/dshills/actionflow/internal/pipeline"
	"github.com/dshills/actionflow/internal/store"
)

func ok(ctx context.Context, exec *pipeline.Context) pipeline.Result {
	return pipeline.Success()
}

func TestRegisterValidation(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	if _, err := d.Register("", ok, handler.Registration{}); !errors.Is(err, dispatcher.ErrEmptyAction) {
		t.Errorf("empty action: got %v, want ErrEmptyAction", err)
	}
	if _, err := d.Register("a", nil, handler.Registration{}); !errors.Is(err, handler.ErrNilHandler) {
		t.Errorf("nil handler: got %v, want ErrNilHandler", err)
	}
	if _, err := d.Register("a", ok, handler.Registration{Debounce: time.Second, Throttle: time.Second}); !errors.Is(err, handler.ErrConflictingGuards) {
		t.Errorf("conflicting guards: got %v, want ErrConflictingGuards", err)
	}
}

func TestDispatchEmptyAction(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	if _, err := d.Dispatch(context.Background(), "", nil); !errors.Is(err, dispatcher.ErrEmptyAction) {
		t.Errorf("got %v, want ErrEmptyAction", err)
	}
}

func TestDispatchNoHandlers(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	out, err := d.Dispatch(context.Background(), "missing", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success {
		t.Error("expected neutral successful outcome")
	}
}

func TestDispatchRequireHandler(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	_, err := d.Dispatch(context.Background(), "missing", nil, dispatcher.WithRequireHandler())
	if !errors.Is(err, dispatcher.ErrNoHandlers) {
		t.Fatalf("got %v, want ErrNoHandlers", err)
	}

	var uerr *dispatcher.UnknownActionError
	if !errors.As(err, &uerr) || uerr.Action != "missing" {
		t.Errorf("expected UnknownActionError for %q, got %v", "missing", err)
	}
}

func TestDispatchPriorityOrder(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var mu sync.Mutex
	var order []string
	record := func(name string) handler.Func {
		return func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return pipeline.Success()
		}
	}

	mustRegister(t, d, "save", record("low"), handler.Registration{Priority: 1, Blocking: true})
	mustRegister(t, d, "save", record("high"), handler.Registration{Priority: 10, Blocking: true})
	mustRegister(t, d, "save", record("mid"), handler.Registration{Priority: 5, Blocking: true})

	out, err := d.Dispatch(context.Background(), "save", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success {
		t.Errorf("expected success, got %+v", out)
	}

	want := []string{"high", "mid", "low"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, order[i], want[i])
		}
	}
}

func TestUnregisterClosure(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	off := mustRegister(t, d, "ping", ok, handler.Registration{})
	if d.HandlerCount("ping") != 1 {
		t.Fatalf("expected 1 handler, got %d", d.HandlerCount("ping"))
	}

	off()
	off() // idempotent
	if d.HandlerCount("ping") != 0 {
		t.Errorf("expected 0 handlers after unregister, got %d", d.HandlerCount("ping"))
	}
}

func TestOnceHandlerPruned(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var calls int
	mustRegister(t, d, "init", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		calls++
		return pipeline.Success()
	}, handler.Registration{Once: true, Blocking: true})

	for i := 0; i < 3; i++ {
		if _, err := d.Dispatch(context.Background(), "init", nil); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("once handler ran %d times, want 1", calls)
	}
	if d.HandlerCount("init") != 0 {
		t.Errorf("expected once handler pruned, %d remain", d.HandlerCount("init"))
	}
}

func TestOnceSkippedByConditionSurvives(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var calls int
	mustRegister(t, d, "flush", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		calls++
		return pipeline.Success()
	}, handler.Registration{
		Once:      true,
		Blocking:  true,
		Condition: func(payload any) bool { ready, _ := payload.(bool); return ready },
	})

	if _, err := d.Dispatch(context.Background(), "flush", false); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatal("condition should have skipped the handler")
	}
	if d.HandlerCount("flush") != 1 {
		t.Fatal("skipped once handler must not be pruned")
	}

	if _, err := d.Dispatch(context.Background(), "flush", true); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	if d.HandlerCount("flush") != 0 {
		t.Error("expected once handler pruned after real execution")
	}
}

func TestBlockedDispatch(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var calls int
	mustRegister(t, d, "submit", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		calls++
		return pipeline.Success()
	}, handler.Registration{Blocking: true})

	var starts, blocks int
	offStart, _ := d.Events().On(event.KindActionStart, func(ev event.Event) { starts++ })
	defer offStart()
	offBlock, _ := d.Events().On(event.KindGuardBlocked, func(ev event.Event) {
		blocks++
		if ev.Reason != "maintenance" {
			t.Errorf("block reason = %q, want maintenance", ev.Reason)
		}
	})
	defer offBlock()

	d.Block("submit", "maintenance")
	out, err := d.Dispatch(context.Background(), "submit", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Blocked || out.Success {
		t.Errorf("expected blocked outcome, got %+v", out)
	}
	if out.BlockReason != "maintenance" {
		t.Errorf("BlockReason = %q, want maintenance", out.BlockReason)
	}
	if calls != 0 {
		t.Error("blocked dispatch must not run handlers")
	}
	if starts != 0 {
		t.Error("blocked dispatch must not emit action:start")
	}
	if blocks != 1 {
		t.Errorf("guard:blocked emitted %d times, want 1", blocks)
	}

	d.Unblock("submit")
	if out, _ := d.Dispatch(context.Background(), "submit", nil); out.Blocked {
		t.Error("expected dispatch to pass after unblock")
	}
	if calls != 1 {
		t.Errorf("handler ran %d times after unblock, want 1", calls)
	}
}

func TestBlockPredicate(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig(),
		dispatcher.WithBlockPredicate(func(action string, payload any) (bool, string) {
			if s, _ := payload.(string); s == "spam" {
				return true, "payload rejected"
			}
			return false, ""
		}),
	)
	mustRegister(t, d, "post", ok, handler.Registration{Blocking: true})

	out, err := d.Dispatch(context.Background(), "post", "spam")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Blocked || out.BlockReason != "payload rejected" {
		t.Errorf("expected predicate block, got %+v", out)
	}

	if out, _ := d.Dispatch(context.Background(), "post", "fine"); out.Blocked {
		t.Error("predicate should not block clean payloads")
	}
}

func TestLifecycleEventSequence(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())
	mustRegister(t, d, "greet", ok, handler.Registration{Blocking: true})

	var mu sync.Mutex
	var kinds []event.Kind
	for _, k := range []event.Kind{event.KindActionStart, event.KindActionComplete, event.KindActionError, event.KindActionAbort} {
		off, err := d.Events().On(k, func(ev event.Event) {
			mu.Lock()
			kinds = append(kinds, ev.Kind)
			mu.Unlock()
		})
		if err != nil {
			t.Fatal(err)
		}
		defer off()
	}

	if _, err := d.Dispatch(context.Background(), "greet", "hi"); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []event.Kind{event.KindActionStart, event.KindActionComplete}
	if len(kinds) != len(want) {
		t.Fatalf("got events %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestErrorEventOnHandlerFailure(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	boom := errors.New("boom")
	mustRegister(t, d, "risky", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		return pipeline.Error(boom)
	}, handler.Registration{ID: "h1", Blocking: true})

	var got event.Event
	off, _ := d.Events().On(event.KindActionError, func(ev event.Event) { got = ev })
	defer off()

	out, err := d.Dispatch(context.Background(), "risky", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Success {
		t.Error("expected failed outcome")
	}
	if got.HandlerID != "h1" {
		t.Errorf("error event handler = %q, want h1", got.HandlerID)
	}
	if got.Action != "risky" {
		t.Errorf("error event action = %q, want risky", got.Action)
	}
	if !errors.Is(got.Err, boom) {
		t.Errorf("error event err = %v, want wrapped boom", got.Err)
	}
}

func TestAbortEvent(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	mustRegister(t, d, "wizard", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		exec.Abort("user backed out")
		return pipeline.Success()
	}, handler.Registration{Blocking: true})

	var aborts, completes int
	var reason string
	offA, _ := d.Events().On(event.KindActionAbort, func(ev event.Event) {
		aborts++
		reason = ev.Reason
	})
	defer offA()
	offC, _ := d.Events().On(event.KindActionComplete, func(ev event.Event) { completes++ })
	defer offC()

	out, err := d.Dispatch(context.Background(), "wizard", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Aborted || out.Success {
		t.Errorf("expected aborted outcome, got %+v", out)
	}
	if aborts != 1 || completes != 0 {
		t.Errorf("aborts=%d completes=%d, want 1/0", aborts, completes)
	}
	if reason != "user backed out" {
		t.Errorf("abort reason = %q", reason)
	}
}

func TestDebouncedHandlerFiresOnceWithLastPayload(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var mu sync.Mutex
	var payloads []any
	mustRegister(t, d, "search", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		mu.Lock()
		payloads = append(payloads, exec.Payload())
		mu.Unlock()
		return pipeline.Success()
	}, handler.Registration{Debounce: 60 * time.Millisecond, Blocking: true})

	for _, q := range []string{"g", "go", "gop"} {
		if _, err := d.Dispatch(context.Background(), "search", q); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 {
		t.Fatalf("debounced handler fired %d times, want 1", len(payloads))
	}
	if payloads[0] != "gop" {
		t.Errorf("fired with %v, want last payload gop", payloads[0])
	}
}

func TestThrottledHandlerLeadingEdge(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var mu sync.Mutex
	var calls int
	mustRegister(t, d, "scroll", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		mu.Lock()
		calls++
		mu.Unlock()
		return pipeline.Success()
	}, handler.Registration{Throttle: 80 * time.Millisecond, Blocking: true})

	for i := 0; i < 3; i++ {
		if _, err := d.Dispatch(context.Background(), "scroll", i); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	if calls != 1 {
		t.Errorf("throttled handler ran %d times inside window, want 1", calls)
	}
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	if _, err := d.Dispatch(context.Background(), "scroll", 9); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("handler ran %d times after window, want 2", calls)
	}
}

func TestTimedHandlerDoesNotDelayOthers(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var immediate int
	mustRegister(t, d, "type", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		immediate++
		return pipeline.Success()
	}, handler.Registration{Blocking: true})
	mustRegister(t, d, "type", ok, handler.Registration{Debounce: time.Second})

	out, err := d.Dispatch(context.Background(), "type", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success {
		t.Errorf("expected success, got %+v", out)
	}
	if immediate != 1 {
		t.Errorf("untimed handler ran %d times, want 1", immediate)
	}
}

func TestDeferredFireSkipsUnregistered(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var calls int
	off := mustRegister(t, d, "draft", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		calls++
		return pipeline.Success()
	}, handler.Registration{Debounce: 40 * time.Millisecond, Blocking: true})

	if _, err := d.Dispatch(context.Background(), "draft", "v1"); err != nil {
		t.Fatal(err)
	}
	off()

	time.Sleep(100 * time.Millisecond)
	if calls != 0 {
		t.Errorf("unregistered handler fired %d times, want 0", calls)
	}
}

func TestCollectResults(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	mustRegister(t, d, "sum", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		return pipeline.SuccessWith(40)
	}, handler.Registration{Priority: 2, Blocking: true})
	mustRegister(t, d, "sum", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		return pipeline.SuccessWith(2)
	}, handler.Registration{Priority: 1, Blocking: true})

	out, err := d.Dispatch(context.Background(), "sum", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 2 || out.Results[0] != 40 || out.Results[1] != 2 {
		t.Errorf("results = %v, want [40 2]", out.Results)
	}

	out, err = d.Dispatch(context.Background(), "sum", nil, dispatcher.WithCollectResults(false))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 0 {
		t.Errorf("results = %v, want empty with collection off", out.Results)
	}
}

func TestDispatchModeOverride(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	release := make(chan struct{})
	var mu sync.Mutex
	var done []string
	slow := func(name string) handler.Func {
		return func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
			if name == "slow" {
				<-release
			}
			mu.Lock()
			done = append(done, name)
			mu.Unlock()
			return pipeline.Success()
		}
	}
	mustRegister(t, d, "load", slow("slow"), handler.Registration{Priority: 10, Blocking: true})
	mustRegister(t, d, "load", slow("fast"), handler.Registration{Priority: 1, Blocking: true})

	outCh := make(chan pipeline.Outcome, 1)
	go func() {
		out, _ := d.Dispatch(context.Background(), "load", nil, dispatcher.WithMode(pipeline.ModeRace))
		outCh <- out
	}()

	select {
	case out := <-outCh:
		if !out.Success {
			t.Errorf("race outcome: %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatal("race dispatch should settle with the fast handler")
	}
	close(release)

	mu.Lock()
	defer mu.Unlock()
	if len(done) == 0 || done[0] != "fast" {
		t.Errorf("first settler = %v, want fast", done)
	}
}

func TestSharedStoreAccess(t *testing.T) {
	stores := store.NewRegistry()
	if _, err := stores.Create("counter", 0); err != nil {
		t.Fatal(err)
	}
	d := dispatcher.New(dispatcher.DefaultConfig(), dispatcher.WithStores(stores))

	mustRegister(t, d, "incr", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		s, err := exec.Stores().Get("counter")
		if err != nil {
			return pipeline.Error(err)
		}
		s.Update(func(cur any) any { return cur.(int) + exec.Payload().(int) })
		return pipeline.Success()
	}, handler.Registration{Blocking: true})

	for _, n := range []int{1, 2, 3} {
		if _, err := d.Dispatch(context.Background(), "incr", n); err != nil {
			t.Fatal(err)
		}
	}

	s, err := stores.Get("counter")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Get(); got != 6 {
		t.Errorf("counter = %v, want 6", got)
	}
}

func TestPreDispatchHookCancels(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var calls, starts int
	mustRegister(t, d, "send", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		calls++
		return pipeline.Success()
	}, handler.Registration{Blocking: true})
	off, _ := d.Events().On(event.KindActionStart, func(ev event.Event) { starts++ })
	defer off()

	d.AddPreDispatchHook(dispatcher.PreDispatchFunc(func(action string, payload any) bool {
		return action != "send"
	}))

	out, err := d.Dispatch(context.Background(), "send", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Aborted || out.Success {
		t.Errorf("expected cancelled outcome, got %+v", out)
	}
	if calls != 0 || starts != 0 {
		t.Errorf("cancelled dispatch ran handlers=%d starts=%d", calls, starts)
	}
}

func TestPostDispatchHookSeesOutcome(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())
	mustRegister(t, d, "done", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		return pipeline.SuccessWith("ok")
	}, handler.Registration{Blocking: true})

	var got pipeline.Outcome
	d.AddPostDispatchHook(dispatcher.PostDispatchFunc(func(action string, payload any, out pipeline.Outcome) {
		got = out
	}))

	if _, err := d.Dispatch(context.Background(), "done", nil); err != nil {
		t.Fatal(err)
	}
	if !got.Success || len(got.Results) != 1 {
		t.Errorf("post hook outcome = %+v", got)
	}
}

func TestDispatchAction(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())

	var got any
	mustRegister(t, d, "note.add", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		got = exec.Payload()
		return pipeline.Success()
	}, handler.Registration{Blocking: true})

	out, err := d.DispatchAction(context.Background(), action.New("note.add", "remember"))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success {
		t.Errorf("outcome: %+v", out)
	}
	if got != "remember" {
		t.Errorf("payload = %v, want remember", got)
	}
}

func TestActionsAndClear(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())
	mustRegister(t, d, "b", ok, handler.Registration{})
	mustRegister(t, d, "a", ok, handler.Registration{})

	names := d.Actions()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Actions() = %v, want [a b]", names)
	}

	d.Clear()
	if len(d.Actions()) != 0 {
		t.Error("expected no actions after Clear")
	}
}

func mustRegister(t *testing.T, d *dispatcher.Dispatcher, action string, fn handler.Func, reg handler.Registration) func() {
	t.Helper()
	off, err := d.Register(action, fn, reg)
	if err != nil {
		t.Fatalf("register %s: %v", action, err)
	}
	return off
}
