package manager

import (
	"bytes"
	"testing"

	"streamd/internal/controller"
	"streamd/internal/store"
	"streamd/pkg/types"
)

func TestSessionOpsRequireLoadedModel(t *testing.T) {
	m := newTestManager(t, newFarm(), ManagerConfig{Registry: []types.Model{model("m", 1)}})
	if _, err := m.StopSession("m"); !IsNotLoaded(err) {
		t.Fatalf("stop: %v", err)
	}
	if _, err := m.ResetSession(testCtx(t), "m"); !IsNotLoaded(err) {
		t.Fatalf("reset: %v", err)
	}
	if _, err := m.StopSession("ghost"); !IsModelNotFound(err) {
		t.Fatalf("stop unknown: %v", err)
	}
}

func TestStopAndResetSession(t *testing.T) {
	f := newFarm()
	m := newTestManager(t, f, ManagerConfig{Registry: []types.Model{model("m", 1)}, DefaultModel: "m"})
	ctx := testCtx(t)
	if err := m.Infer(ctx, types.InferRequest{Prompt: "abc"}, &bytes.Buffer{}, nil); err != nil {
		t.Fatalf("infer: %v", err)
	}
	resp, err := m.StopSession("")
	if err != nil || resp.Status != SessionStopRequested || resp.Position != 4 {
		t.Fatalf("stop resp=%+v err=%v", resp, err)
	}
	resp, err = m.ResetSession(ctx, "m")
	if err != nil || resp.Status != SessionReset {
		t.Fatalf("reset resp=%+v err=%v", resp, err)
	}
	if f.engine("m.gguf").Committed() != 0 || m.Status().Instances[0].Position != 0 {
		t.Fatalf("memory not cleared")
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	f := newFarm()
	m := newTestManager(t, f, ManagerConfig{Registry: []types.Model{model("m", 1)}, Store: st})
	ctx := testCtx(t)
	if err := m.Infer(ctx, types.InferRequest{Model: "m", Prompt: "hello"}, &bytes.Buffer{}, nil); err != nil {
		t.Fatalf("infer: %v", err)
	}
	saved, err := m.SaveSession(ctx, "m", "chat-1")
	if err != nil || saved.Position != 6 || saved.Bytes == 0 || saved.Status != SessionSaved {
		t.Fatalf("save resp=%+v err=%v", saved, err)
	}
	if _, err := m.ResetSession(ctx, "m"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	loaded, err := m.LoadSession(ctx, "m", "chat-1")
	if err != nil || loaded.Position != 6 || loaded.Status != SessionLoaded {
		t.Fatalf("load resp=%+v err=%v", loaded, err)
	}
	if f.engine("m.gguf").Committed() != 6 {
		t.Fatalf("engine memory not restored: %d", f.engine("m.gguf").Committed())
	}
	if _, err := m.LoadSession(ctx, "m", "missing"); !controller.IsPersistence(err) {
		t.Fatalf("missing key: %v", err)
	}
	if _, err := m.SaveSession(ctx, "m", "../escape"); !controller.IsPersistence(err) {
		t.Fatalf("bad key: %v", err)
	}
}

func TestLoadSessionLoadsModel(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := st.Put(testCtx(t), "k", store.Snapshot{Position: 3, Data: []byte{0, 3}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	f := newFarm()
	m := newTestManager(t, f, ManagerConfig{Registry: []types.Model{model("m", 1)}, Store: st})
	resp, err := m.LoadSession(testCtx(t), "m", "k")
	if err != nil || resp.Position != 3 {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
	if f.loadCount() != 1 {
		t.Fatalf("model should be loaded on demand")
	}
}

func TestSessionPersistenceWithoutStore(t *testing.T) {
	m := newTestManager(t, newFarm(), ManagerConfig{Registry: []types.Model{model("m", 1)}})
	if _, err := m.SaveSession(testCtx(t), "m", "k"); !IsDependencyUnavailable(err) {
		t.Fatalf("save: %v", err)
	}
	if _, err := m.LoadSession(testCtx(t), "m", "k"); !IsDependencyUnavailable(err) {
		t.Fatalf("load: %v", err)
	}
}
