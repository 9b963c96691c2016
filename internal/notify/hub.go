package notify

import (
	"sync"

	"meetup-service/internal/models"
	"meetup-service/internal/observability"
)

// UnreadEvent is published whenever something may have changed a user's
// unread snapshot: a send, a mark-read, a message delete, a conversation
// clear.
type UnreadEvent struct {
	UserID   int
	Snapshot models.UnreadSnapshot
}

// Hub is the in-process change feed behind the polling contract. Client
// delivery stays pull-based; the hub lets server-side consumers (the alert
// forwarder) see unread changes as they happen instead of re-polling storage.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan UnreadEvent]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan UnreadEvent]struct{})}
}

// Subscribe registers a consumer. The channel is buffered; a consumer that
// stops draining loses events rather than blocking publishers.
func (h *Hub) Subscribe() chan UnreadEvent {
	ch := make(chan UnreadEvent, 64)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a consumer.
func (h *Hub) Unsubscribe(ch chan UnreadEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, ch)
}

// Publish fans the event out to all subscribers without blocking the request
// path. Dropped events are counted; the next unread change carries a full
// snapshot anyway.
func (h *Hub) Publish(event UnreadEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			observability.IncNotifyDropped()
		}
	}
}
