package manager

import "sync"

// MemoryPublisher keeps the most recent events in memory. A zero limit keeps
// everything.
type MemoryPublisher struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewMemoryPublisher keeps at most limit events, dropping the oldest.
func NewMemoryPublisher(limit int) *MemoryPublisher {
	return &MemoryPublisher{limit: max(limit, 0)}
}

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	if p.limit > 0 && len(p.events) > p.limit {
		p.events = append(p.events[:0], p.events[len(p.events)-p.limit:]...)
	}
}

// Events returns a copy, oldest first.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Count returns how many retained events carry name.
func (p *MemoryPublisher) Count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

func (p *MemoryPublisher) Has(name string) bool { return p.Count(name) > 0 }
