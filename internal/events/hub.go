package events

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// subscriberBuffer is how many events a slow subscriber may fall behind before events are dropped
const subscriberBuffer = 64

// Hub fans events out to in-process subscribers such as websocket clients
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subscribers: make(map[int]chan Event)}
}

// Publish wraps data in an event and delivers it to every subscriber
func (h *Hub) Publish(eventType string, data interface{}) error {
	evt, err := NewEvent(eventType, data)
	if err != nil {
		return err
	}
	h.Deliver(evt)
	return nil
}

// Deliver sends an already built event without blocking on slow subscribers
func (h *Hub) Deliver(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
			log.Warnf("live subscriber %d is falling behind, dropping %s", id, evt.Type)
		}
	}
}

// Subscribe registers a new subscriber. Call the returned function to unsubscribe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// SubscriberCount reports the number of live subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
