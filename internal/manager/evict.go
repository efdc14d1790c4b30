package manager

import (
	"context"

	"github.com/rs/zerolog"
)

// evictUntilFits unloads LRU idle instances until requiredMB fits the budget
// plus margin. Busy or queued instances are never evicted.
func (m *Manager) evictUntilFits(ctx context.Context, requiredMB int) error {
	for {
		m.mu.Lock()
		if m.usedEstMB+requiredMB+m.marginMB <= m.budgetMB {
			m.mu.Unlock()
			return nil
		}
		var lru *Instance
		for _, inst := range m.instances {
			if !inst.idle() {
				continue
			}
			if lru == nil || inst.LastUsed.Before(lru.LastUsed) {
				lru = inst
			}
		}
		if lru == nil {
			err := budgetExceededError{requiredMB: requiredMB + m.marginMB, usedMB: m.usedEstMB, budgetMB: m.budgetMB}
			m.mu.Unlock()
			return err
		}
		delete(m.instances, lru.ID)
		m.usedEstMB -= lru.EstVRAMMB
		if m.cur != nil && m.cur.ID == lru.ID {
			m.cur = nil
		}
		m.mu.Unlock()

		m.evictions.Add(1)
		instanceEventsTotal.WithLabelValues("evict").Inc()
		m.closeInstance(ctx, lru)
		m.emit(zerolog.InfoLevel, "evict", lru.ID, map[string]any{"freed_mb": lru.EstVRAMMB})
	}
}
