package controller

import (
	"context"
	"errors"
	"fmt"

	"streamd/internal/engine"
	"streamd/internal/store"
)

var errNoPersist = errors.New("engine does not support state snapshots")

// SaveState writes the engine memory and position to st under key.
func (s *Session) SaveState(ctx context.Context, st store.Store, key string) (store.Snapshot, error) {
	l, err := s.Acquire(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer l.Release()
	p, ok := s.eng.(engine.Persister)
	if !ok {
		return store.Snapshot{}, newError(PersistenceFailed, "save", errNoPersist)
	}
	data, err := p.SaveState()
	if err != nil {
		return store.Snapshot{}, newError(PersistenceFailed, "save", err)
	}
	snap := store.Snapshot{Position: s.Position(), Data: data}
	if err := st.Put(ctx, key, snap); err != nil {
		return store.Snapshot{}, newError(PersistenceFailed, "save", err)
	}
	s.log.Info().Str("event", "state_saved").Str("key", key).Int("position", snap.Position).
		Int("bytes", len(data)).Msg("")
	return snap, nil
}

// LoadState restores a snapshot saved by SaveState. On failure the engine
// memory is cleared, since a partial restore leaves it undefined.
func (s *Session) LoadState(ctx context.Context, st store.Store, key string) (store.Snapshot, error) {
	l, err := s.Acquire(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer l.Release()
	p, ok := s.eng.(engine.Persister)
	if !ok {
		return store.Snapshot{}, newError(PersistenceFailed, "load", errNoPersist)
	}
	snap, err := st.Get(ctx, key)
	if err != nil {
		return store.Snapshot{}, newError(PersistenceFailed, "load", err)
	}
	if snap.Position < 0 || snap.Position > s.eng.ContextSize() {
		return store.Snapshot{}, newError(PersistenceFailed, "load",
			fmt.Errorf("snapshot position %d outside context %d", snap.Position, s.eng.ContextSize()))
	}
	if err := p.LoadState(snap.Data); err != nil {
		s.eng.ClearMemory()
		s.pos.Store(0)
		return store.Snapshot{}, newError(PersistenceFailed, "load", err)
	}
	s.pos.Store(int64(snap.Position))
	s.log.Info().Str("event", "state_loaded").Str("key", key).Int("position", snap.Position).Msg("")
	return snap, nil
}
