package manager

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"streamd/internal/engine"
	"streamd/internal/engine/enginetest"
	"streamd/pkg/types"
)

// createModelFile creates a file of approximately sizeMB megabytes and returns its path.
func createModelFile(t *testing.T, dir, name string, sizeMB int) string {
	t.Helper()
	if sizeMB <= 0 {
		sizeMB = 1
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	block := make([]byte, 1024*1024)
	for i := 0; i < sizeMB; i++ {
		if _, err := f.Write(block); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return p
}

// farm hands out a fresh scripted engine per load and remembers them by path.
type farm struct {
	mu      sync.Mutex
	pieces  []string
	tune    func(*enginetest.Scripted)
	err     error
	delay   time.Duration
	loads   int
	engines map[string]*enginetest.Scripted
}

func newFarm(pieces ...string) *farm {
	return &farm{pieces: pieces, engines: map[string]*enginetest.Scripted{}}
}

func (f *farm) loader() engine.Loader {
	return func(path string, _ engine.Options) (engine.Engine, error) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.loads++
		if f.err != nil {
			return nil, f.err
		}
		e := enginetest.New(f.pieces...)
		if f.tune != nil {
			f.tune(e)
		}
		f.engines[path] = e
		return e, nil
	}
}

func (f *farm) engine(path string) *enginetest.Scripted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engines[path]
}

func (f *farm) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// model builds a registry entry with a fixed size so no file is needed.
func model(id string, sizeMB int) types.Model {
	return types.Model{ID: id, Path: id + ".gguf", SizeBytes: int64(sizeMB) * 1024 * 1024}
}

func newTestManager(t *testing.T, f *farm, cfg ManagerConfig) *Manager {
	t.Helper()
	cfg.Loader = f.loader()
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = 200 * time.Millisecond
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

// errWriter writes once, then returns an error on subsequent writes.
type errWriter struct{ wrote int }

func (e *errWriter) Write(p []byte) (int, error) {
	if e.wrote == 0 {
		e.wrote += len(p)
		return len(p), nil
	}
	return 0, errors.New("write fail")
}

// parseStream splits an NDJSON body into token lines and the done line.
func parseStream(t *testing.T, body []byte) ([]string, types.DoneLine) {
	t.Helper()
	var (
		tokens []string
		done   types.DoneLine
		seen   bool
	)
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Bytes()
		var probe map[string]any
		if err := json.Unmarshal(line, &probe); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		if _, ok := probe["done"]; ok {
			if seen {
				t.Fatalf("second done line %q", line)
			}
			if err := json.Unmarshal(line, &done); err != nil {
				t.Fatalf("done line: %v", err)
			}
			seen = true
			continue
		}
		if seen {
			t.Fatalf("line after done: %q", line)
		}
		var tl types.TokenLine
		if err := json.Unmarshal(line, &tl); err != nil {
			t.Fatalf("token line: %v", err)
		}
		tokens = append(tokens, tl.Token)
	}
	if !seen {
		t.Fatalf("no done line in %q", body)
	}
	return tokens, done
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
