package memstore

import (
	"sync"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"
)

// DefaultEventLogCapacity bounds the retained webhook history.
const DefaultEventLogCapacity = 50

// EventLog is a fixed-capacity ring of webhook events. Insertion order
// is preserved and the oldest entry is evicted first once full.
type EventLog struct {
	mu     sync.RWMutex
	events []domain.WebhookEvent
	head   int
	count  int
}

// NewEventLog creates a ring with the given capacity; non-positive
// values fall back to the default.
func NewEventLog(capacity int) ports.EventLog {
	if capacity <= 0 {
		capacity = DefaultEventLogCapacity
	}
	return &EventLog{
		events: make([]domain.WebhookEvent, capacity),
	}
}

func (l *EventLog) Append(event domain.WebhookEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[l.head] = event
	l.head = (l.head + 1) % len(l.events)
	if l.count < len(l.events) {
		l.count++
	}
}

// Recent returns the retained events most-recent-first.
func (l *EventLog) Recent() []domain.WebhookEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.WebhookEvent, 0, l.count)
	for i := 1; i <= l.count; i++ {
		idx := (l.head - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out
}

func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}
