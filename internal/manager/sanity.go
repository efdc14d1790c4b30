package manager

import (
	"os"

	"streamd/internal/engine"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	EngineBuilt       bool   `json:"engine_built"`
	ModelsFound       int    `json:"models_found"`
	DefaultModel      string `json:"default_model,omitempty"`
	DefaultModelFound bool   `json:"default_model_found"`
	StoreConfigured   bool   `json:"store_configured"`
	Error             string `json:"error,omitempty"`
}

// OK reports whether the daemon can serve generations.
func (r SanityReport) OK() bool { return r.Error == "" }

// SanityCheck validates that the engine is linked and the default model is
// readable. It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := SanityReport{
		EngineBuilt:     engine.Built,
		ModelsFound:     len(m.registry),
		DefaultModel:    m.defaultModel,
		StoreConfigured: m.store != nil,
	}
	if m.defaultModel != "" {
		if mdl, ok := m.getModelByID(m.defaultModel); ok {
			if fi, err := os.Stat(mdl.Path); err == nil && !fi.IsDir() {
				r.DefaultModelFound = true
			} else if err != nil {
				r.Error = err.Error()
			} else {
				r.Error = "default model path is a directory"
			}
		} else {
			r.Error = "default model not in registry: " + m.defaultModel
		}
	}
	if !r.EngineBuilt && r.Error == "" {
		r.Error = engine.ErrUnavailable.Error()
	}
	return r
}
