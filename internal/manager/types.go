package manager

import (
	"time"

	"streamd/internal/controller"
	"streamd/internal/engine"
)

// State represents lifecycle state of the manager/instances.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateDraining State = "draining"
	StateError    State = "error"
)

// ModelInfo is a minimal view of the current model.
type ModelInfo struct {
	ID     string
	Name   string
	Path   string
	Quant  string
	Family string
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State        State
	CurrentModel *ModelInfo
	Err          string
}

// Instance is a loaded model: one engine and the session that owns it.
type Instance struct {
	ID        string
	State     State
	LastUsed  time.Time
	EstVRAMMB int

	Engine  engine.Engine
	Session *controller.Session

	// loaded is closed when the load attempt finishes, successful or not.
	loaded chan struct{}
}

// idle reports whether the instance can be evicted without cutting off work.
func (i *Instance) idle() bool {
	if i.State != StateReady || i.Session == nil {
		return false
	}
	st := i.Session.Status()
	return !st.Busy && st.Waiting == 0
}
