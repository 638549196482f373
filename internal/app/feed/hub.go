// Package feed keeps the in-process registry of live-result subscribers.
package feed

import (
	"context"
	"sync"

	"github.com/evercare/livepoll/internal/domain"
	"github.com/evercare/livepoll/internal/platform/metrics"
)

const subscriberBuffer = 8

// Hub maps poll codes to subscriber channels. Delivery per subscriber is
// non-blocking: a subscriber whose buffer is full misses that snapshot and
// catches up on the next one.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe registers a new subscriber for pollCode. The returned cancel
// function must be called exactly once when the subscriber goes away.
func (h *Hub) Subscribe(pollCode string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if h.subs[pollCode] == nil {
		h.subs[pollCode] = make(map[chan []byte]struct{})
	}
	h.subs[pollCode][ch] = struct{}{}
	h.mu.Unlock()

	metrics.IncLiveSubscribers()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[pollCode]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, pollCode)
				}
			}
			h.mu.Unlock()
			close(ch)
			metrics.DecLiveSubscribers()
		})
	}

	return ch, cancel
}

func (h *Hub) Broadcast(ctx context.Context, pollCode string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[pollCode] {
		select {
		case ch <- payload:
		default:
			// Slow subscriber: skip rather than stall the others.
		}
	}
	return nil
}

// SubscriberCount reports the current subscribers for one poll.
func (h *Hub) SubscriberCount(pollCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[pollCode])
}

var _ domain.Broadcaster = (*Hub)(nil)
