package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	fs, err := Open("file", filepath.Join(dir, "states"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	db, err := Open("sqlite", filepath.Join(dir, "states.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Store{"file": fs, "sqlite": db}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		blob := bytes.Repeat([]byte{0xAB, 0x01}, 4096)
		if err := s.Put(ctx, "conv-1", Snapshot{Position: 321, Data: blob}); err != nil {
			t.Fatalf("%s put: %v", name, err)
		}
		got, err := s.Get(ctx, "conv-1")
		if err != nil {
			t.Fatalf("%s get: %v", name, err)
		}
		if got.Position != 321 || !bytes.Equal(got.Data, blob) {
			t.Fatalf("%s: position=%d len=%d", name, got.Position, len(got.Data))
		}
		// overwrite
		if err := s.Put(ctx, "conv-1", Snapshot{Position: 1, Data: []byte{9}}); err != nil {
			t.Fatalf("%s overwrite: %v", name, err)
		}
		got, _ = s.Get(ctx, "conv-1")
		if got.Position != 1 || len(got.Data) != 1 {
			t.Fatalf("%s overwrite not visible: %+v", name, got)
		}
		if err := s.Delete(ctx, "conv-1"); err != nil {
			t.Fatalf("%s delete: %v", name, err)
		}
		if _, err := s.Get(ctx, "conv-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestInvalidKeys(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
			if err := s.Put(ctx, key, Snapshot{Data: []byte{1}}); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("%s key %q: %v", name, key, err)
			}
		}
	}
}

func TestFileStoreDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if err := s.Put(ctx, "k", Snapshot{Position: 5, Data: []byte("0123456789")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	p := filepath.Join(dir, "k.state")
	b, _ := os.ReadFile(p)
	if err := os.WriteFile(p, b[:len(b)-3], 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, err := Open("redis", "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenFailureReturnsNilStore(t *testing.T) {
	st, err := Open("file", "")
	if err == nil {
		t.Fatalf("expected error for empty dir")
	}
	if st != nil {
		t.Fatalf("failed Open returned a non-nil store: %#v", st)
	}
}
