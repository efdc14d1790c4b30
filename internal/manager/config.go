package manager

import (
	"time"

	"github.com/rs/zerolog"

	"streamd/internal/controller"
	"streamd/internal/engine"
	"streamd/internal/store"
	"streamd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultDrainTimeout = 10 * time.Second
	// defaultLoadTimeout bounds how long a caller waits on another caller's load.
	defaultLoadTimeout = 2 * time.Minute
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     []types.Model
	BudgetMB     int
	MarginMB     int
	DefaultModel string
	// Session configures admission, generation defaults and stop policy for
	// every instance.
	Session controller.SessionConfig
	// Engine options passed to Loader.
	Engine engine.Options
	// Loader opens engines; engine.Load when nil.
	Loader engine.Loader
	// Store keeps session snapshots. Save/load fail as unavailable when nil.
	Store        store.Store
	DrainTimeout time.Duration
	Publisher    EventPublisher
	Logger       *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:        StateLoading,
		registry:     cfg.Registry,
		budgetMB:     cfg.BudgetMB,
		marginMB:     cfg.MarginMB,
		defaultModel: cfg.DefaultModel,
		instances:    make(map[string]*Instance),
		sessionCfg:   cfg.Session,
		engineOpts:   cfg.Engine.WithDefaults(),
		loader:       cfg.Loader,
		store:        cfg.Store,
		drainTimeout: cfg.DrainTimeout,
		publisher:    cfg.Publisher,
		startTime:    time.Now(),
	}
	if m.loader == nil {
		m.loader = engine.Load
	}
	if m.drainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	m.base = log
	m.log = log.With().Str("component", "manager").Logger()
	return m
}
