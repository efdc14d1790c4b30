package manager

import (
	"time"

	"github.com/rs/zerolog"
)

// Event is a manager lifecycle event, also logged with event=<Name>.
type Event struct {
	Name    string
	ModelID string
	At      time.Time
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// emit logs the event and hands it to the publisher. Callers must not hold m.mu.
func (m *Manager) emit(level zerolog.Level, name, modelID string, fields map[string]any) {
	ev := m.log.WithLevel(level).Str("event", name).Str("model", modelID)
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg("")
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	if fields == nil {
		fields = map[string]any{}
	}
	p.Publish(Event{Name: name, ModelID: modelID, At: time.Now(), Fields: fields})
}
