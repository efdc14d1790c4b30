package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"streamd/internal/config"
)

// globalFlags are shared by every subcommand. Defaults come from STREAMD_*
// env vars; values set here override the config file.
type globalFlags struct {
	configPath   string
	modelsDir    string
	defaultModel string
	logLevel     string
	logFormat    string
	budgetMB     int
	marginMB     int
	ctxSize      int
	gpuLayers    int
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "streamd",
		Short:         "Streaming text generation over local GGUF models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", envOr("STREAMD_CONFIG", ""), "Config file (.yaml, .json or .toml)")
	pf.StringVar(&g.modelsDir, "models-dir", envOr("STREAMD_MODELS_DIR", ""), "Directory to scan for *.gguf model files")
	pf.StringVar(&g.defaultModel, "default-model", envOr("STREAMD_DEFAULT_MODEL", ""), "Default model id when a request omits model")
	pf.StringVar(&g.logLevel, "log-level", envOr("STREAMD_LOG_LEVEL", ""), "Log level: debug|info|warn|error")
	pf.StringVar(&g.logFormat, "log-format", envOr("STREAMD_LOG_FORMAT", ""), "Log format: json|console")
	pf.IntVar(&g.budgetMB, "vram-budget-mb", envInt("STREAMD_VRAM_BUDGET_MB", 0), "VRAM budget in MB for all instances (0=unlimited)")
	pf.IntVar(&g.marginMB, "vram-margin-mb", envInt("STREAMD_VRAM_MARGIN_MB", 0), "Reserved VRAM margin in MB to keep free")
	pf.IntVar(&g.ctxSize, "ctx-size", envInt("STREAMD_CTX_SIZE", 0), "Engine context window in tokens")
	pf.IntVar(&g.gpuLayers, "gpu-layers", envInt("STREAMD_GPU_LAYERS", 0), "Layers to offload to the GPU")

	root.AddCommand(newServeCmd(g), newGenerateCmd(g), newChatCmd(g), newTokenizeCmd(g))
	return root
}

// load reads the config file, applies flag overrides and defaults, and
// validates the result.
func (g *globalFlags) load() (config.Config, error) {
	var cfg config.Config
	if g.configPath != "" {
		c, err := config.Load(g.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	g.apply(&cfg)
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (g *globalFlags) apply(cfg *config.Config) {
	if g.modelsDir != "" {
		cfg.ModelsDir = g.modelsDir
	}
	if g.defaultModel != "" {
		cfg.DefaultModel = g.defaultModel
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	if g.budgetMB > 0 {
		cfg.VRAMBudgetMB = g.budgetMB
	}
	if g.marginMB > 0 {
		cfg.VRAMMarginMB = g.marginMB
	}
	if g.ctxSize > 0 {
		cfg.Engine.ContextSize = g.ctxSize
	}
	if g.gpuLayers > 0 {
		cfg.Engine.GPULayers = g.gpuLayers
	}
}

// newLogger builds the process logger. Console output is meant for
// terminals; everything else gets JSON lines.
func newLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
