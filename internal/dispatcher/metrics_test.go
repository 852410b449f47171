package dispatcher_test

import (
	"context"
	"testing"

	"github.com/dshills/actionflow/internal/dispatcher"
	"github.com/dshills/actionflow/internal/dispatcher/handler"
	"github.com/dshills/actionflow/internal/pipeline"
)

func TestMetricsDisabledByDefault(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig())
	if d.Metrics() != nil {
		t.Error("metrics should be nil when disabled")
	}
}

func TestMetricsRecordsDispatches(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig().WithMetrics(true))

	mustRegister(t, d, "good", ok, handler.Registration{Blocking: true})
	mustRegister(t, d, "bad", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		return pipeline.Errorf("nope")
	}, handler.Registration{Blocking: true})
	mustRegister(t, d, "quit", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		exec.Abort("stop")
		return pipeline.Success()
	}, handler.Registration{Blocking: true})

	for i := 0; i < 2; i++ {
		if _, err := d.Dispatch(context.Background(), "good", nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := d.Dispatch(context.Background(), "bad", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Dispatch(context.Background(), "quit", nil); err != nil {
		t.Fatal(err)
	}

	m := d.Metrics()
	if m.TotalDispatches() != 4 {
		t.Errorf("TotalDispatches = %d, want 4", m.TotalDispatches())
	}
	if m.TotalErrors() != 2 {
		// the failed run and the aborted run both count as unsuccessful
		t.Errorf("TotalErrors = %d, want 2", m.TotalErrors())
	}
	if m.TotalAborts() != 1 {
		t.Errorf("TotalAborts = %d, want 1", m.TotalAborts())
	}

	stats, ok := m.ActionStats("good")
	if !ok {
		t.Fatal("missing stats for good")
	}
	if stats.DispatchCount != 2 || stats.ErrorCount != 0 {
		t.Errorf("good stats = %+v", stats)
	}
	if stats.MaxDuration < stats.MinDuration {
		t.Errorf("duration bounds: min=%v max=%v", stats.MinDuration, stats.MaxDuration)
	}
	if stats.TotalDuration < stats.MaxDuration {
		t.Errorf("TotalDuration %v below MaxDuration %v", stats.TotalDuration, stats.MaxDuration)
	}
}

func TestMetricsRecordsBlocked(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig().WithMetrics(true))
	mustRegister(t, d, "gate", ok, handler.Registration{Blocking: true})

	d.Block("gate", "closed")
	if _, err := d.Dispatch(context.Background(), "gate", nil); err != nil {
		t.Fatal(err)
	}

	m := d.Metrics()
	if m.TotalBlocked() != 1 {
		t.Errorf("TotalBlocked = %d, want 1", m.TotalBlocked())
	}
	if m.TotalDispatches() != 0 {
		t.Errorf("blocked dispatch must not count as a dispatch, got %d", m.TotalDispatches())
	}
	stats, ok := m.ActionStats("gate")
	if !ok || stats.BlockCount != 1 {
		t.Errorf("gate stats = %+v ok=%v", stats, ok)
	}
}

func TestMetricsSnapshotAndReset(t *testing.T) {
	d := dispatcher.New(dispatcher.DefaultConfig().WithMetrics(true))
	mustRegister(t, d, "a", ok, handler.Registration{Blocking: true})

	if _, err := d.Dispatch(context.Background(), "a", nil); err != nil {
		t.Fatal(err)
	}

	snap := d.Metrics().Snapshot()
	if len(snap) != 1 || snap["a"].DispatchCount != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	d.Metrics().Reset()
	if d.Metrics().TotalDispatches() != 0 {
		t.Error("expected zero dispatches after reset")
	}
	if len(d.Metrics().Snapshot()) != 0 {
		t.Error("expected empty snapshot after reset")
	}
}
