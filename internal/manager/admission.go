package manager

import "streamd/internal/controller"

// loaded returns an existing ready instance without loading one.
func (m *Manager) loaded(modelID string) (*Instance, error) {
	modelID, err := m.resolveModelID(modelID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst := m.instances[modelID]
	if inst == nil {
		if _, ok := m.getModelByID(modelID); !ok {
			return nil, ErrModelNotFound(modelID)
		}
		return nil, notLoadedError{id: modelID}
	}
	switch inst.State {
	case StateDraining:
		return nil, tooBusyError{modelID: modelID, cause: errDraining}
	case StateLoading:
		return nil, tooBusyError{modelID: modelID, cause: errLoading}
	}
	return inst, nil
}

// admissionError turns a session admission failure into backpressure.
func admissionError(modelID string, err error) error {
	if controller.IsSessionBusy(err) {
		return tooBusyError{modelID: modelID, cause: err}
	}
	return err
}
