package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"streamd/internal/controller"
	"streamd/internal/sampling"
	"streamd/internal/stopcond"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

const yamlCfg = `addr: :9999
models_dir: /tmp
default_model: m1
log_level: debug
engine:
  ctx_size: 4096
  batch_size: 256
queue:
  max_depth: 2
  max_wait_ms: 1500
  admission: reject
generation:
  max_tokens: 64
  temperature: 0.7
stop:
  min_tokens: 5
  max_sentences: 3
  max_chars: 400
  max_punct_streak: 2
  locale: ko-KR
  strings: ["User:", "###"]
filter:
  normalize_punctuation: true
state:
  store: sqlite
  dsn: /tmp/s.db
`

func TestLoadYAML(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "cfg.yaml", yamlCfg)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp" || cfg.DefaultModel != "m1" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Engine.ContextSize != 4096 || cfg.Queue.Admission != "reject" || cfg.Generation.MaxTokens != 64 {
		t.Fatalf("sections not decoded: %+v", cfg)
	}
	if len(cfg.Stop.Strings) != 2 || !cfg.Filter.NormalizePunctuation || cfg.State.Store != "sqlite" {
		t.Fatalf("sections not decoded: %+v", cfg)
	}
	if sp := cfg.StopPolicy(); sp.MaxChars != 400 || sp.MaxPunctStreak != 2 || sp.MaxSentences != 3 {
		t.Fatalf("stop policy: %+v", sp)
	}
	if err := cfg.WithDefaults().Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "cfg.json",
		`{"addr":":7070","models_dir":"/m","vram_budget_mb":42,"vram_margin_mb":2,"default_model":"m2","generation":{"top_k":20},"stop":{"locale":"en"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.VRAMBudgetMB != 42 || cfg.VRAMMarginMB != 2 || cfg.Generation.TopK != 20 || cfg.Stop.Locale != "en" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "cfg.toml",
		"addr=\":8081\"\nmodels_dir=\"/x\"\n[engine]\nthreads=4\n[queue]\nmax_depth=3\n[state]\nstore=\"file\"\ndir=\"/var/s\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.Engine.Threads != 4 || cfg.Queue.MaxDepth != 3 || cfg.State.Dir != "/var/s" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	bad := map[string]string{
		"cfg.txt":   "not supported",
		"bad.yaml":  "addr: :8080\n: broken\n",
		"bad.json":  `{ "addr": ":8080", "models_dir": }`,
		"bad.toml":  "addr=:8080\nmodels_dir\n",
		"type.yaml": "engine:\n  ctx_size: lots\n",
	}
	for name, content := range bad {
		if _, err := Load(writeTempFile(t, d, name, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Addr != DefaultAddr || cfg.Engine.ContextSize != 2048 || cfg.Engine.BatchSize != 128 || cfg.Engine.Threads != 6 {
		t.Fatalf("engine defaults: %+v", cfg.Engine)
	}
	if cfg.SamplingParams() != sampling.Defaults {
		t.Fatalf("generation defaults: %+v", cfg.Generation)
	}
	if cfg.Queue.MaxDepth != controller.DefaultMaxQueueDepth || cfg.Queue.Admission != "block" {
		t.Fatalf("queue defaults: %+v", cfg.Queue)
	}
	sc := cfg.SessionConfig()
	if sc.MaxWait != controller.DefaultMaxWait {
		t.Fatalf("max wait=%v", sc.MaxWait)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestPartialGenerationKeepsOverrides(t *testing.T) {
	cfg := Config{Generation: Generation{Temperature: 0.9, RepeatLastN: 64}}.WithDefaults()
	if cfg.Generation.Temperature != 0.9 || cfg.Generation.RepeatLastN != 64 || cfg.Generation.TopK != 50 {
		t.Fatalf("generation=%+v", cfg.Generation)
	}
}

func TestStopPolicyLocale(t *testing.T) {
	cfg := Config{Stop: Stop{Locale: "ko"}}
	if _, ok := cfg.StopPolicy().Detector.(stopcond.Korean); !ok {
		t.Fatalf("ko locale should select the Korean detector")
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Queue.Admission = "drop" },
		func(c *Config) { c.State.Store = "redis" },
		func(c *Config) { c.LogFormat = "xml" },
	}
	for i, mut := range cases {
		cfg := Default()
		mut(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if time.Duration(Default().Queue.MaxWaitMS)*time.Millisecond != controller.DefaultMaxWait {
		t.Fatalf("max wait round trip")
	}
}

func TestStoreLocation(t *testing.T) {
	c := Config{State: State{Store: "file", Dir: "/tmp/s"}}
	if got := c.StoreLocation(); got != "/tmp/s" {
		t.Fatalf("file location %q", got)
	}
	c.State.Store = "sqlite"
	if got := c.StoreLocation(); got != filepath.Join("/tmp/s", "sessions.db") {
		t.Fatalf("sqlite fallback %q", got)
	}
	c.State.DSN = "file:x.db"
	if got := c.StoreLocation(); got != "file:x.db" {
		t.Fatalf("sqlite dsn %q", got)
	}
}
