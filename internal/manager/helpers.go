package manager

import (
	"os"

	"streamd/pkg/types"
)

// Helper: find model in registry by id.
func (m *Manager) getModelByID(id string) (types.Model, bool) {
	for _, mdl := range m.registry {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}

// resolveModelID falls back to the default model for an empty id.
func (m *Manager) resolveModelID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if m.defaultModel == "" {
		return "", ErrModelNotFound("(unspecified)")
	}
	return m.defaultModel, nil
}

// estimateVRAMMB estimates the footprint from the file size in MB. Unknown
// sizes count as 1MB so they never bypass the budget.
func (m *Manager) estimateVRAMMB(mdl types.Model) int {
	size := mdl.SizeBytes
	if size <= 0 {
		fi, err := os.Stat(mdl.Path)
		if err != nil {
			return 1
		}
		size = fi.Size()
	}
	mb := int(size / (1024 * 1024))
	if mb <= 0 {
		mb = 1
	}
	return mb
}
