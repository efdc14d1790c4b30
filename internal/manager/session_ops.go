package manager

import (
	"context"

	"github.com/rs/zerolog"

	"streamd/pkg/types"
)

// Session status values reported by the control operations.
const (
	SessionStopRequested = "stop_requested"
	SessionReset         = "reset"
	SessionSaved         = "saved"
	SessionLoaded        = "loaded"
)

// StopSession asks the model's running generation to end at the next token
// boundary. It does not wait and is a no-op when nothing is running.
func (m *Manager) StopSession(modelID string) (types.SessionResponse, error) {
	inst, err := m.loaded(modelID)
	if err != nil {
		return types.SessionResponse{}, err
	}
	inst.Session.Stop()
	m.emit(zerolog.InfoLevel, "session_stop", inst.ID, nil)
	return types.SessionResponse{Model: inst.ID, Position: inst.Session.Position(), Status: SessionStopRequested}, nil
}

// ResetSession clears the model's conversation memory. It queues behind
// running generations like any other request.
func (m *Manager) ResetSession(ctx context.Context, modelID string) (types.SessionResponse, error) {
	inst, err := m.loaded(modelID)
	if err != nil {
		return types.SessionResponse{}, err
	}
	if err := inst.Session.ClearMemory(ctx); err != nil {
		return types.SessionResponse{}, admissionError(inst.ID, err)
	}
	m.emit(zerolog.InfoLevel, "session_reset", inst.ID, nil)
	return types.SessionResponse{Model: inst.ID, Status: SessionReset}, nil
}

// SaveSession snapshots the model's session memory under key.
func (m *Manager) SaveSession(ctx context.Context, modelID, key string) (types.SessionResponse, error) {
	if m.store == nil {
		return types.SessionResponse{}, ErrDependencyUnavailable("session store not configured")
	}
	inst, err := m.loaded(modelID)
	if err != nil {
		return types.SessionResponse{}, err
	}
	snap, err := inst.Session.SaveState(ctx, m.store, key)
	if err != nil {
		return types.SessionResponse{}, admissionError(inst.ID, err)
	}
	m.emit(zerolog.InfoLevel, "session_saved", inst.ID, map[string]any{"key": key, "bytes": len(snap.Data)})
	return types.SessionResponse{Model: inst.ID, Key: key, Position: snap.Position, Bytes: len(snap.Data), Status: SessionSaved}, nil
}

// LoadSession restores a snapshot into the model's session, loading the
// model first when needed.
func (m *Manager) LoadSession(ctx context.Context, modelID, key string) (types.SessionResponse, error) {
	if m.store == nil {
		return types.SessionResponse{}, ErrDependencyUnavailable("session store not configured")
	}
	inst, err := m.ensure(ctx, modelID)
	if err != nil {
		return types.SessionResponse{}, err
	}
	snap, err := inst.Session.LoadState(ctx, m.store, key)
	if err != nil {
		return types.SessionResponse{}, admissionError(inst.ID, err)
	}
	m.emit(zerolog.InfoLevel, "session_loaded", inst.ID, map[string]any{"key": key, "position": snap.Position})
	return types.SessionResponse{Model: inst.ID, Key: key, Position: snap.Position, Bytes: len(snap.Data), Status: SessionLoaded}, nil
}
