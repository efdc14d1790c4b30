package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"streamd/internal/config"
)

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "streamd.yaml")
	body := "models_dir: /from/file\ndefault_model: a.gguf\nengine:\n  ctx_size: 1024\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	g := &globalFlags{configPath: p, defaultModel: "b.gguf", ctxSize: 4096}
	cfg, err := g.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelsDir != "/from/file" {
		t.Fatalf("models dir %q", cfg.ModelsDir)
	}
	if cfg.DefaultModel != "b.gguf" || cfg.Engine.ContextSize != 4096 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Addr != config.DefaultAddr {
		t.Fatalf("defaults not applied: addr %q", cfg.Addr)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	g := &globalFlags{logFormat: "xml"}
	if _, err := g.load(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestEnvProvidesFlagDefaults(t *testing.T) {
	t.Setenv("STREAMD_DEFAULT_MODEL", "env.gguf")
	t.Setenv("STREAMD_VRAM_BUDGET_MB", "2048")
	root := newRootCmd()
	if got := root.PersistentFlags().Lookup("default-model").DefValue; got != "env.gguf" {
		t.Fatalf("default-model default %q", got)
	}
	if got := root.PersistentFlags().Lookup("vram-budget-mb").DefValue; got != "2048" {
		t.Fatalf("vram-budget-mb default %q", got)
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "generate", "chat", "tokenize"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("subcommand %s missing (%v)", name, err)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger("warn", "json", &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"message":"shown"`) {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if log.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("level %v", log.GetLevel())
	}

	buf.Reset()
	log, err = newLogger("info", "console", &buf)
	if err != nil {
		t.Fatalf("newLogger console: %v", err)
	}
	log.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("console output: %s", buf.String())
	}

	if _, err := newLogger("chatty", "json", &buf); err == nil {
		t.Fatalf("expected error for bad level")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := config.Config{
		Addr:      "127.0.0.1:0",
		ModelsDir: t.TempDir(),
		State:     config.State{Store: "file", Dir: t.TempDir()},
	}.WithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zerolog.Nop()) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestServeFlagsApply(t *testing.T) {
	cfg := config.Default()
	f := &serveFlags{addr: ":9999", corsOrigins: "https://a.example, https://b.example", inferTimeout: 30}
	f.apply(&cfg)
	if cfg.Addr != ":9999" || cfg.InferTimeoutSeconds != 30 {
		t.Fatalf("serve flags: %+v", cfg)
	}
	if !cfg.CORSEnabled || len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("cors: %v %v", cfg.CORSEnabled, cfg.CORSAllowedOrigins)
	}
}
