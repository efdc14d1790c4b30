package manager

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var errLoading = errors.New("instance still loading")

// Unload drains a model instance and removes it.
//   - New requests are rejected once the instance is draining.
//   - Requests already queued on the session run to completion; after
//     drainTimeout the running generation is asked to stop.
//   - The engine is closed and the budget released.
func (m *Manager) Unload(ctx context.Context, modelID string) error {
	if modelID == "" {
		return ErrModelNotFound("(unspecified)")
	}
	m.mu.Lock()
	inst := m.instances[modelID]
	if inst == nil {
		m.mu.Unlock()
		return ErrModelNotFound(modelID)
	}
	switch inst.State {
	case StateLoading:
		m.mu.Unlock()
		return tooBusyError{modelID: modelID, cause: errLoading}
	case StateDraining:
		m.mu.Unlock()
		return tooBusyError{modelID: modelID, cause: errDraining}
	}
	inst.State = StateDraining
	m.mu.Unlock()
	m.emit(zerolog.InfoLevel, "unload_start", modelID, nil)

	if err := m.closeInstance(ctx, inst); err != nil {
		m.mu.Lock()
		inst.State = StateReady
		m.mu.Unlock()
		m.emit(zerolog.ErrorLevel, "unload_error", modelID, map[string]any{"error": err.Error()})
		return err
	}

	m.mu.Lock()
	if m.instances[modelID] == inst {
		delete(m.instances, modelID)
		m.usedEstMB -= inst.EstVRAMMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
	}
	if m.cur != nil && m.cur.ID == modelID {
		m.cur = nil
	}
	m.mu.Unlock()

	instanceEventsTotal.WithLabelValues("unload").Inc()
	m.emit(zerolog.InfoLevel, "unload_done", modelID, nil)
	return nil
}

// closeInstance waits up to drainTimeout for the session, then stops the
// running generation and waits for the rest.
func (m *Manager) closeInstance(ctx context.Context, inst *Instance) error {
	if inst.Session == nil {
		return nil
	}
	dctx, cancel := context.WithTimeout(ctx, m.drainTimeout)
	err := inst.Session.Close(dctx)
	cancel()
	if err == nil {
		return nil
	}
	st := inst.Session.Status()
	m.emit(zerolog.WarnLevel, "unload_timeout", inst.ID, map[string]any{
		"inflight": st.Busy,
		"queue":    st.Waiting,
	})
	inst.Session.Stop()
	return inst.Session.Close(ctx)
}
