package manager

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"streamd/internal/controller"
	"streamd/internal/engine/enginetest"
	"streamd/pkg/types"
)

func TestUnloadRemovesInstanceAndUpdatesAccounting(t *testing.T) {
	f := newFarm()
	pub := NewMemoryPublisher(0)
	m := newTestManager(t, f, ManagerConfig{Registry: []types.Model{model("m", 3)}, Publisher: pub})
	ctx := testCtx(t)
	if err := m.EnsureInstance(ctx, "m"); err != nil {
		t.Fatalf("EnsureInstance: %v", err)
	}
	if err := m.Unload(ctx, "m"); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	m.mu.RLock()
	_, exists := m.instances["m"]
	used := m.usedEstMB
	m.mu.RUnlock()
	if exists || used != 0 {
		t.Fatalf("exists=%v used=%d", exists, used)
	}
	if !f.engine("m.gguf").Closed() {
		t.Fatalf("engine not closed")
	}
	for _, name := range []string{"ensure_start", "ensure_ready", "unload_start", "unload_done"} {
		if !pub.Has(name) {
			t.Fatalf("missing event %q in %+v", name, pub.Events())
		}
	}
	if err := m.Unload(ctx, "m"); !IsModelNotFound(err) {
		t.Fatalf("second unload: %v", err)
	}
}

func TestUnloadStopsGenerationAfterDrainTimeout(t *testing.T) {
	pieces := make([]string, 400)
	for i := range pieces {
		pieces[i] = fmt.Sprintf(" w%d", i)
	}
	f := newFarm(pieces...)
	f.tune = func(e *enginetest.Scripted) { e.EvalDelay = 2 * time.Millisecond }
	pub := NewMemoryPublisher(0)
	m := newTestManager(t, f, ManagerConfig{
		Registry:     []types.Model{model("m", 1)},
		DrainTimeout: 30 * time.Millisecond,
		Publisher:    pub,
	})
	ctx := testCtx(t)
	if err := m.EnsureInstance(ctx, "m"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- m.Infer(ctx, types.InferRequest{Model: "m", Prompt: "x", MaxTokens: 350}, &buf, nil)
	}()
	for m.Status().Instances[0].Inflight == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := m.Unload(ctx, "m"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("infer: %v", err)
	}
	_, line := parseStream(t, buf.Bytes())
	if line.FinishReason != string(controller.FinishCancelled) {
		t.Fatalf("done=%+v", line)
	}
	if !pub.Has("unload_timeout") {
		t.Fatalf("expected unload_timeout event")
	}
}

func TestDrainingInstanceRejectsRequests(t *testing.T) {
	m := newTestManager(t, newFarm(), ManagerConfig{Registry: []types.Model{model("m", 1)}})
	ctx := testCtx(t)
	if err := m.EnsureInstance(ctx, "m"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	m.mu.Lock()
	m.instances["m"].State = StateDraining
	m.mu.Unlock()
	if err := m.Infer(ctx, types.InferRequest{Model: "m", Prompt: "x"}, &bytes.Buffer{}, nil); !IsTooBusy(err) {
		t.Fatalf("expected too busy, got %v", err)
	}
	if err := m.Unload(ctx, "m"); !IsTooBusy(err) {
		t.Fatalf("expected too busy for a second unload, got %v", err)
	}
	if st := m.Status(); st.DrainingCount != 1 {
		t.Fatalf("draining=%d", st.DrainingCount)
	}
	m.mu.Lock()
	m.instances["m"].State = StateReady
	m.mu.Unlock()
}
