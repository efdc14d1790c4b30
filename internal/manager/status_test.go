package manager

import (
	"context"
	"testing"
	"time"

	"streamd/internal/controller"
	"streamd/internal/engine"
	"streamd/pkg/types"
)

func TestStatusReportsSessions(t *testing.T) {
	m := newTestManager(t, newFarm(), ManagerConfig{
		Registry: []types.Model{model("b", 1), model("a", 2)},
		BudgetMB: 100,
		MarginMB: 5,
		Session:  controller.SessionConfig{MaxQueueDepth: 4},
	})
	ctx := testCtx(t)
	for _, id := range []string{"b", "a"} {
		if err := m.EnsureInstance(ctx, id); err != nil {
			t.Fatalf("ensure %s: %v", id, err)
		}
	}
	st := m.Status()
	if st.BudgetMB != 100 || st.MarginMB != 5 || st.UsedMB != 3 || st.LoadsTotal != 2 {
		t.Fatalf("status=%+v", st)
	}
	if st.EngineBuilt != engine.Built || st.State != string(StateReady) {
		t.Fatalf("status=%+v", st)
	}
	if len(st.Instances) != 2 || st.Instances[0].ModelID != "a" {
		t.Fatalf("instances not sorted: %+v", st.Instances)
	}
	in := st.Instances[0]
	if in.MaxQueueDepth != 4 || in.ContextSize != 2048 || in.Inflight != 0 || in.QueueLen != 0 {
		t.Fatalf("instance=%+v", in)
	}
}

func TestStatusCountsWarmupAndDraining(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	m.mu.Lock()
	m.instances["a"] = &Instance{ID: "a", State: StateLoading, LastUsed: time.Now(), EstVRAMMB: 10}
	m.instances["b"] = &Instance{ID: "b", State: StateDraining, LastUsed: time.Now(), EstVRAMMB: 20}
	m.mu.Unlock()
	st := m.Status()
	if st.WarmupsInProgress != 1 {
		t.Fatalf("expected WarmupsInProgress=1, got %d", st.WarmupsInProgress)
	}
	if st.DrainingCount != 1 {
		t.Fatalf("expected DrainingCount=1, got %d", st.DrainingCount)
	}
}

func TestSwitchLoadsInBackground(t *testing.T) {
	f := newFarm()
	f.delay = 10 * time.Millisecond
	pub := NewMemoryPublisher(0)
	m := newTestManager(t, f, ManagerConfig{Registry: []types.Model{model("m", 1)}, Publisher: pub})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	op, err := m.Switch(ctx, "m")
	if err != nil || op == "" {
		t.Fatalf("Switch returned error/op empty: op=%q err=%v", op, err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !pub.Has("switch_done") {
		if time.Now().After(deadline) {
			t.Fatalf("background load did not finish: %+v", pub.Events())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !m.Ready() {
		t.Fatalf("expected ready after switch")
	}
	for _, e := range pub.Events() {
		if e.Name == "switch_done" && e.Fields["op_id"] != op {
			t.Fatalf("op id mismatch: %+v", e)
		}
	}
}

func TestSwitchUnknownModelFailsFast(t *testing.T) {
	m := newTestManager(t, newFarm(), ManagerConfig{Registry: []types.Model{model("m", 1)}})
	if _, err := m.Switch(testCtx(t), "ghost"); !IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
}

func TestSetEventPublisherNilRestoresNoop(t *testing.T) {
	m := newTestManager(t, newFarm(), ManagerConfig{Registry: []types.Model{model("m", 1)}})
	m.SetEventPublisher(nil)
	if err := m.EnsureInstance(testCtx(t), "m"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
}

func TestSanityCheck(t *testing.T) {
	dir := t.TempDir()
	p := createModelFile(t, dir, "m.gguf", 1)
	m := NewWithConfig(ManagerConfig{
		Registry:     []types.Model{{ID: "m", Path: p}},
		DefaultModel: "m",
	})
	r := m.SanityCheck()
	if !r.DefaultModelFound || r.ModelsFound != 1 || r.StoreConfigured {
		t.Fatalf("report=%+v", r)
	}
	if r.OK() != engine.Built {
		t.Fatalf("OK()=%v with engine built=%v: %+v", r.OK(), engine.Built, r)
	}

	m = NewWithConfig(ManagerConfig{Registry: []types.Model{{ID: "m", Path: dir}}, DefaultModel: "m"})
	if r := m.SanityCheck(); r.DefaultModelFound || r.Error == "" {
		t.Fatalf("directory path must fail: %+v", r)
	}
	m = NewWithConfig(ManagerConfig{DefaultModel: "ghost"})
	if r := m.SanityCheck(); r.Error == "" {
		t.Fatalf("unknown default must fail: %+v", r)
	}
}
