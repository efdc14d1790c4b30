package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"streamd/internal/config"
	"streamd/internal/controller"
	"streamd/internal/engine"
	"streamd/internal/engine/enginetest"
)

func useScripted(t *testing.T, eng *enginetest.Scripted) {
	t.Helper()
	old := loadEngine
	loadEngine = eng.Loader()
	t.Cleanup(func() { loadEngine = old })
}

func modelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("gguf"), 0o644); err != nil {
			t.Fatalf("write model: %v", err)
		}
	}
	return dir
}

func TestResolveModelPath(t *testing.T) {
	dir := modelsDir(t, "a.gguf")
	cfg := config.Config{ModelsDir: dir, DefaultModel: "a.gguf"}
	p, err := resolveModelPath(cfg, "")
	if err != nil || filepath.Base(p) != "a.gguf" {
		t.Fatalf("default model: %q %v", p, err)
	}
	if _, err := resolveModelPath(cfg, "missing.gguf"); err == nil {
		t.Fatalf("expected not found")
	}
	direct := filepath.Join(dir, "a.gguf")
	if p, err := resolveModelPath(cfg, direct); err != nil || p != direct {
		t.Fatalf("direct path: %q %v", p, err)
	}
	if _, err := resolveModelPath(config.Config{ModelsDir: dir}, ""); err == nil {
		t.Fatalf("expected error without a model")
	}
}

func TestOpenSessionUnavailableEngine(t *testing.T) {
	old := loadEngine
	loadEngine = func(string, engine.Options) (engine.Engine, error) { return nil, engine.ErrUnavailable }
	defer func() { loadEngine = old }()
	cfg := config.Config{ModelsDir: modelsDir(t, "a.gguf")}.WithDefaults()
	_, err := openSession(cfg, "a.gguf", zerolog.Nop())
	if !errors.Is(err, engine.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestGenerateStreamsToWriter(t *testing.T) {
	eng := enginetest.New("Hel", "lo", " there")
	useScripted(t, eng)
	cfg := config.Config{ModelsDir: modelsDir(t, "a.gguf")}.WithDefaults()
	sess, err := openSession(cfg, "a.gguf", zerolog.Nop())
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer sess.Close(context.Background())

	var out bytes.Buffer
	f := &generateFlags{maxTokens: 10, stop: []string{" there"}}
	res, err := generate(context.Background(), sess, f.request("hi"), &out)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.String() != "Hello\n" {
		t.Fatalf("output %q", out.String())
	}
	if res.FinishReason != controller.FinishStopString {
		t.Fatalf("finish %s", res.FinishReason)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestGenerateStopsOnWriteError(t *testing.T) {
	eng := enginetest.New("a", "b", "c", "d", "e", "f")
	useScripted(t, eng)
	cfg := config.Config{ModelsDir: modelsDir(t, "a.gguf")}.WithDefaults()
	sess, err := openSession(cfg, "a.gguf", zerolog.Nop())
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer sess.Close(context.Background())
	res, err := generate(context.Background(), sess, controller.Request{Prompt: "x"}, failWriter{})
	if err == nil || !strings.Contains(err.Error(), "closed pipe") {
		t.Fatalf("want write error, got %v", err)
	}
	if res.FinishReason != controller.FinishCancelled {
		t.Fatalf("finish %s", res.FinishReason)
	}
}

func TestChatFlagWrapsPrompt(t *testing.T) {
	f := &generateFlags{chat: true, system: "Be brief."}
	req := f.request("hello")
	if !strings.Contains(req.Prompt, "Be brief.") || !strings.Contains(req.Prompt, "hello") ||
		!strings.HasSuffix(req.Prompt, "assistant<|end_header_id|>\n\n") {
		t.Fatalf("prompt %q", req.Prompt)
	}
}

func TestReadPrompt(t *testing.T) {
	if got, _ := readPrompt([]string{"a", "b"}, nil); got != "a b" {
		t.Fatalf("args prompt %q", got)
	}
	if got, _ := readPrompt([]string{"-"}, strings.NewReader("from stdin\n")); got != "from stdin" {
		t.Fatalf("stdin prompt %q", got)
	}
	if _, err := readPrompt(nil, strings.NewReader("\n")); err == nil {
		t.Fatalf("expected empty prompt error")
	}
}

func TestTokenizeCommand(t *testing.T) {
	useScripted(t, enginetest.New())
	dir := modelsDir(t, "a.gguf")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"tokenize", "--models-dir", dir, "--log-level", "error", "-m", "a.gguf", "abc"})
	if err := root.Execute(); err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "1 4 4 4" {
		t.Fatalf("tokens %q", got)
	}
}
