package manager

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Switch starts loading a model in the background and returns an operation
// id. Unknown models fail synchronously; load progress is visible in Status
// and in the switch_done/switch_failed events, which carry the op id.
func (m *Manager) Switch(ctx context.Context, modelID string) (string, error) {
	modelID, err := m.resolveModelID(modelID)
	if err != nil {
		return "", err
	}
	if _, ok := m.getModelByID(modelID); !ok {
		return "", ErrModelNotFound(modelID)
	}
	op := uuid.NewString()
	// Detached from ctx: the load outlives the request that asked for it.
	bg := context.WithoutCancel(ctx)
	go func(opID string) {
		if _, err := m.ensure(bg, modelID); err != nil {
			m.emit(zerolog.WarnLevel, "switch_failed", modelID, map[string]any{"op_id": opID, "error": err.Error()})
			return
		}
		m.emit(zerolog.InfoLevel, "switch_done", modelID, map[string]any{"op_id": opID})
	}(op)
	return op, nil
}
