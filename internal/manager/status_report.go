package manager

import (
	"sort"
	"time"

	"streamd/internal/engine"
	"streamd/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, CurrentModel: m.cur, Err: m.err}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		BudgetMB:       m.budgetMB,
		UsedMB:         m.usedEstMB,
		MarginMB:       m.marginMB,
		LastError:      m.err,
		State:          string(m.state),
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		EvictionsTotal: m.evictions.Load(),
		LoadsTotal:     m.loads.Load(),
		EngineBuilt:    engine.Built,
	}
	resp.Instances = make([]types.InstanceStatus, 0, len(m.instances))
	for _, inst := range m.instances {
		switch inst.State {
		case StateLoading:
			resp.WarmupsInProgress++
		case StateDraining:
			resp.DrainingCount++
		}
		is := types.InstanceStatus{
			ModelID:   inst.ID,
			State:     string(inst.State),
			LastUsed:  inst.LastUsed.Unix(),
			EstVRAMMB: inst.EstVRAMMB,
		}
		if inst.Session != nil {
			st := inst.Session.Status()
			is.QueueLen = st.Waiting
			if st.Busy {
				is.Inflight = 1
			}
			is.MaxQueueDepth = inst.Session.Config().MaxQueueDepth
			is.Position = st.Position
			is.ContextSize = st.ContextSize
			is.Generations = st.Generations
		}
		resp.Instances = append(resp.Instances, is)
	}
	sort.Slice(resp.Instances, func(i, j int) bool { return resp.Instances[i].ModelID < resp.Instances[j].ModelID })
	return resp
}
