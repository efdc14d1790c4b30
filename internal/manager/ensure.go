package manager

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"streamd/internal/controller"
	"streamd/internal/engine"
)

var errDraining = errors.New("instance draining")

// EnsureInstance makes sure the model is loaded and ready. An empty id means
// the default model; with no default configured it is a no-op.
func (m *Manager) EnsureInstance(ctx context.Context, modelID string) error {
	if modelID == "" && m.defaultModel == "" {
		return nil
	}
	_, err := m.ensure(ctx, modelID)
	return err
}

// ensure returns a ready instance, loading it when absent. Concurrent callers
// for the same model wait for a single load.
func (m *Manager) ensure(ctx context.Context, modelID string) (*Instance, error) {
	modelID, err := m.resolveModelID(modelID)
	if err != nil {
		return nil, err
	}
	for {
		m.mu.Lock()
		inst := m.instances[modelID]
		if inst != nil {
			switch inst.State {
			case StateReady:
				inst.LastUsed = time.Now()
				m.mu.Unlock()
				return inst, nil
			case StateDraining:
				m.mu.Unlock()
				return nil, tooBusyError{modelID: modelID, cause: errDraining}
			}
			loaded := inst.loaded
			m.mu.Unlock()
			wait, cancel := context.WithTimeout(ctx, defaultLoadTimeout)
			select {
			case <-loaded:
				cancel()
				continue
			case <-wait.Done():
				cancel()
				return nil, wait.Err()
			}
		}
		m.mu.Unlock()
		return m.load(ctx, modelID)
	}
}

func (m *Manager) load(ctx context.Context, modelID string) (*Instance, error) {
	start := time.Now()
	m.emit(zerolog.InfoLevel, "ensure_start", modelID, nil)

	mdl, ok := m.getModelByID(modelID)
	if !ok {
		m.emit(zerolog.WarnLevel, "ensure_model_not_found", modelID, nil)
		return nil, ErrModelNotFound(modelID)
	}
	reqMB := m.estimateVRAMMB(mdl)
	if m.budgetMB > 0 {
		if err := m.evictUntilFits(ctx, reqMB); err != nil {
			m.emit(zerolog.WarnLevel, "ensure_budget_fail", modelID, map[string]any{"error": err.Error()})
			return nil, err
		}
	}

	m.mu.Lock()
	if existing := m.instances[modelID]; existing != nil {
		// Another caller started the load while we were evicting.
		m.mu.Unlock()
		return m.ensure(ctx, modelID)
	}
	inst := &Instance{
		ID:        modelID,
		State:     StateLoading,
		LastUsed:  time.Now(),
		EstVRAMMB: reqMB,
		loaded:    make(chan struct{}),
	}
	m.instances[modelID] = inst
	m.usedEstMB += reqMB
	m.state = StateLoading
	m.err = ""
	m.mu.Unlock()

	eng, err := m.loader(mdl.Path, m.engineOpts)
	if err != nil {
		m.mu.Lock()
		delete(m.instances, modelID)
		m.usedEstMB -= reqMB
		m.state = StateError
		m.err = err.Error()
		close(inst.loaded)
		m.mu.Unlock()
		instanceEventsTotal.WithLabelValues("load_error").Inc()
		m.emit(zerolog.ErrorLevel, "ensure_load_error", modelID, map[string]any{"error": err.Error()})
		if errors.Is(err, engine.ErrUnavailable) {
			return nil, ErrDependencyUnavailable(err.Error())
		}
		return nil, loadError{modelID: modelID, err: err}
	}

	cfg := m.sessionCfg
	lg := m.base.With().Str("model", modelID).Logger()
	cfg.Logger = &lg
	sess := controller.NewSession(eng, cfg)

	m.mu.Lock()
	inst.Engine = eng
	inst.Session = sess
	inst.State = StateReady
	inst.LastUsed = time.Now()
	m.cur = &ModelInfo{ID: mdl.ID, Name: mdl.Name, Path: mdl.Path, Quant: mdl.Quant, Family: mdl.Family}
	m.state = StateReady
	m.err = ""
	close(inst.loaded)
	m.mu.Unlock()

	m.loads.Add(1)
	instanceEventsTotal.WithLabelValues("load").Inc()
	m.emit(zerolog.InfoLevel, "ensure_ready", modelID, map[string]any{
		"dur_ms":  time.Since(start).Milliseconds(),
		"est_mb":  reqMB,
		"ctx":     eng.ContextSize(),
		"n_batch": eng.BatchSize(),
	})
	return inst, nil
}
