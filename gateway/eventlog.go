package gateway

import (
	"sync"

	"relicpool/core/events"
	"relicpool/core/types"
)

// broadcastable is implemented by event payloads that can render themselves as
// a structured attribute event.
type broadcastable interface {
	Event() *types.Event
}

// EventLog is an events.Emitter keeping the most recent pool notifications in
// a bounded in-memory ring, for the gateway's events endpoint.
type EventLog struct {
	mu     sync.RWMutex
	buf    []*types.Event
	next   int
	filled bool
}

// NewEventLog creates a log retaining up to capacity events.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = 256
	}
	return &EventLog{buf: make([]*types.Event, capacity)}
}

// Emit implements the events.Emitter interface.
func (l *EventLog) Emit(evt events.Event) {
	payload, ok := evt.(broadcastable)
	if !ok {
		return
	}
	rendered := payload.Event()
	if rendered == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = rendered
	l.next++
	if l.next == len(l.buf) {
		l.next = 0
		l.filled = true
	}
}

// List returns the retained events oldest-first, capped at limit when limit is
// positive.
func (l *EventLog) List(limit int) []*types.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var ordered []*types.Event
	if l.filled {
		ordered = append(ordered, l.buf[l.next:]...)
	}
	ordered = append(ordered, l.buf[:l.next]...)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}
