package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"streamd/internal/config"
	"streamd/internal/controller"
	"streamd/internal/engine"
	"streamd/internal/registry"
)

// loadEngine is replaced in tests with a scripted engine.
var loadEngine engine.Loader = engine.Load

// resolveModelPath accepts a model id from the models dir or a path to a
// .gguf file. An empty name falls back to the default model.
func resolveModelPath(cfg config.Config, name string) (string, error) {
	if name == "" {
		name = cfg.DefaultModel
	}
	if name == "" {
		return "", fmt.Errorf("no model given and no default model configured")
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	models, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		return "", err
	}
	for _, m := range models {
		if m.ID == name {
			return m.Path, nil
		}
	}
	return "", fmt.Errorf("model not found: %s", name)
}

// openSession loads a model for single-process use (generate, chat,
// tokenize). The caller closes the session.
func openSession(cfg config.Config, model string, log zerolog.Logger) (*controller.Session, error) {
	path, err := resolveModelPath(cfg, model)
	if err != nil {
		return nil, err
	}
	eng, err := loadEngine(path, cfg.Engine.Options().WithDefaults())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	sc := cfg.SessionConfig()
	l := log.With().Str("model", path).Logger()
	sc.Logger = &l
	return controller.NewSession(eng, sc), nil
}
