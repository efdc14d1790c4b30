package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"streamd/internal/controller"
	"streamd/internal/engine"
	"streamd/internal/sampling"
	"streamd/internal/stopcond"
	"streamd/internal/textproc"
)

const (
	DefaultAddr                = ":8080"
	DefaultModelsDir           = "~/models/llm"
	DefaultLogLevel            = "info"
	DefaultMaxBodyBytes        = 1 << 20
	DefaultInferTimeoutSeconds = 0
	DefaultDrainTimeoutSeconds = 10
	DefaultStateStore          = "file"
	DefaultStateDir            = "~/.local/state/streamd"
)

// Default returns a fully populated configuration.
func Default() Config { return Config{}.WithDefaults() }

// WithDefaults fills unset fields. Generation values come from
// sampling.Defaults so the daemon and the library agree.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.DrainTimeoutSeconds <= 0 {
		c.DrainTimeoutSeconds = DefaultDrainTimeoutSeconds
	}
	c.Engine = c.Engine.withDefaults()
	if c.Queue.MaxDepth <= 0 {
		c.Queue.MaxDepth = controller.DefaultMaxQueueDepth
	}
	if c.Queue.MaxWaitMS <= 0 {
		c.Queue.MaxWaitMS = int(controller.DefaultMaxWait / time.Millisecond)
	}
	if c.Queue.Admission == "" {
		c.Queue.Admission = string(controller.AdmitBlock)
	}
	p := c.SamplingParams().Resolve(sampling.Defaults)
	c.Generation = Generation{
		MaxTokens: p.MaxTokens, Temperature: p.Temperature, TopK: p.TopK, TopP: p.TopP,
		MinP: p.MinP, RepeatPenalty: p.RepeatPenalty, RepeatLastN: p.RepeatLastN, Seed: p.Seed,
	}
	if c.State.Store == "" {
		c.State.Store = DefaultStateStore
	}
	if c.State.Dir == "" {
		c.State.Dir = DefaultStateDir
	}
	return c
}

func (e Engine) withDefaults() Engine {
	o := e.Options().WithDefaults()
	e.ContextSize, e.BatchSize, e.Threads = o.ContextSize, o.BatchSize, o.Threads
	e.ControlFloor = int32(o.ControlFloor)
	return e
}

// Validate reports settings that cannot be honored.
func (c Config) Validate() error {
	switch controller.Admission(c.Queue.Admission) {
	case controller.AdmitBlock, controller.AdmitReject:
	default:
		return fmt.Errorf("queue.admission must be block or reject, got %q", c.Queue.Admission)
	}
	switch strings.ToLower(c.State.Store) {
	case "file", "sqlite":
	default:
		return fmt.Errorf("state.store must be file or sqlite, got %q", c.State.Store)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	if c.Engine.BatchSize > c.Engine.ContextSize {
		return fmt.Errorf("engine.batch_size %d exceeds engine.ctx_size %d", c.Engine.BatchSize, c.Engine.ContextSize)
	}
	return nil
}

// StoreLocation is the argument for store.Open: the snapshot directory for
// the file store, or the DSN for sqlite (sessions.db under the directory
// when no DSN is set).
func (c Config) StoreLocation() string {
	if strings.EqualFold(c.State.Store, "sqlite") {
		if c.State.DSN != "" {
			return c.State.DSN
		}
		return filepath.Join(c.State.Dir, "sessions.db")
	}
	return c.State.Dir
}

// Options converts the engine section.
func (e Engine) Options() engine.Options {
	return engine.Options{
		ContextSize:  e.ContextSize,
		BatchSize:    e.BatchSize,
		Threads:      e.Threads,
		GPULayers:    e.GPULayers,
		ControlFloor: engine.Token(e.ControlFloor),
		UseMmap:      e.UseMmap,
	}
}

// SamplingParams converts the generation section.
func (c Config) SamplingParams() sampling.Params {
	g := c.Generation
	return sampling.Params{
		MaxTokens: g.MaxTokens, Temperature: g.Temperature, TopK: g.TopK, TopP: g.TopP,
		MinP: g.MinP, RepeatPenalty: g.RepeatPenalty, RepeatLastN: g.RepeatLastN, Seed: g.Seed,
	}
}

// StopPolicy converts the stop section; the locale picks the detector.
func (c Config) StopPolicy() stopcond.Config {
	return stopcond.Config{
		MinTokens:              c.Stop.MinTokens,
		MaxExtraTokens:         c.Stop.MaxExtraTokens,
		EnumerationExtraTokens: c.Stop.EnumerationExtraTokens,
		MaxSentences:           c.Stop.MaxSentences,
		MaxChars:               c.Stop.MaxChars,
		MaxPunctStreak:         c.Stop.MaxPunctStreak,
		Detector:               stopcond.ForLocale(c.Stop.Locale),
	}
}

// SessionConfig assembles everything a controller session needs.
func (c Config) SessionConfig() controller.SessionConfig {
	return controller.SessionConfig{
		Defaults:      c.SamplingParams(),
		Stop:          c.StopPolicy(),
		Filter:        textproc.Options{NormalizePunctuation: c.Filter.NormalizePunctuation},
		MaxQueueDepth: c.Queue.MaxDepth,
		MaxWait:       time.Duration(c.Queue.MaxWaitMS) * time.Millisecond,
		Admission:     controller.Admission(c.Queue.Admission),
	}
}
