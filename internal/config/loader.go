package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon and the CLI.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	VRAMBudgetMB int    `json:"vram_budget_mb" yaml:"vram_budget_mb" toml:"vram_budget_mb"`
	VRAMMarginMB int    `json:"vram_margin_mb" yaml:"vram_margin_mb" toml:"vram_margin_mb"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	MaxBodyBytes        int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	InferTimeoutSeconds int      `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds"`
	DrainTimeoutSeconds int      `json:"drain_timeout_seconds" yaml:"drain_timeout_seconds" toml:"drain_timeout_seconds"`
	CORSEnabled         bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins  []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods  []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders  []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`

	Engine     Engine     `json:"engine" yaml:"engine" toml:"engine"`
	Queue      Queue      `json:"queue" yaml:"queue" toml:"queue"`
	Generation Generation `json:"generation" yaml:"generation" toml:"generation"`
	Stop       Stop       `json:"stop" yaml:"stop" toml:"stop"`
	Filter     Filter     `json:"filter" yaml:"filter" toml:"filter"`
	State      State      `json:"state" yaml:"state" toml:"state"`
}

// Engine configures model loading.
type Engine struct {
	ContextSize  int   `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	BatchSize    int   `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	Threads      int   `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers    int   `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	ControlFloor int32 `json:"control_floor" yaml:"control_floor" toml:"control_floor"`
	UseMmap      bool  `json:"use_mmap" yaml:"use_mmap" toml:"use_mmap"`
}

// Queue configures session admission.
type Queue struct {
	MaxDepth  int    `json:"max_depth" yaml:"max_depth" toml:"max_depth"`
	MaxWaitMS int    `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	Admission string `json:"admission" yaml:"admission" toml:"admission"`
}

// Generation holds default sampling parameters.
type Generation struct {
	MaxTokens     int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature   float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopK          int     `json:"top_k" yaml:"top_k" toml:"top_k"`
	TopP          float32 `json:"top_p" yaml:"top_p" toml:"top_p"`
	MinP          float32 `json:"min_p" yaml:"min_p" toml:"min_p"`
	RepeatPenalty float32 `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`
	RepeatLastN   int     `json:"repeat_last_n" yaml:"repeat_last_n" toml:"repeat_last_n"`
	Seed          uint64  `json:"seed" yaml:"seed" toml:"seed"`
}

// Stop holds the stop-condition policy.
type Stop struct {
	MinTokens              int      `json:"min_tokens" yaml:"min_tokens" toml:"min_tokens"`
	MaxExtraTokens         int      `json:"max_extra_tokens" yaml:"max_extra_tokens" toml:"max_extra_tokens"`
	EnumerationExtraTokens int      `json:"enumeration_extra_tokens" yaml:"enumeration_extra_tokens" toml:"enumeration_extra_tokens"`
	MaxSentences           int      `json:"max_sentences" yaml:"max_sentences" toml:"max_sentences"`
	MaxChars               int      `json:"max_chars" yaml:"max_chars" toml:"max_chars"`
	MaxPunctStreak         int      `json:"max_punct_streak" yaml:"max_punct_streak" toml:"max_punct_streak"`
	Locale                 string   `json:"locale" yaml:"locale" toml:"locale"`
	Strings                []string `json:"strings" yaml:"strings" toml:"strings"`
}

// Filter toggles optional output rules.
type Filter struct {
	NormalizePunctuation bool `json:"normalize_punctuation" yaml:"normalize_punctuation" toml:"normalize_punctuation"`
}

// State selects the session snapshot store.
type State struct {
	Store string `json:"store" yaml:"store" toml:"store"`
	Dir   string `json:"dir" yaml:"dir" toml:"dir"`
	DSN   string `json:"dsn" yaml:"dsn" toml:"dsn"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}
