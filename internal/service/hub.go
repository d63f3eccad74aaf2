package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

const subscriberBuffer = 64

// Hub fans invalidations out to the connected editor sessions.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Invalidation]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: map[chan domain.Invalidation]struct{}{},
	}
}

// Subscribe registers a listener. The returned func unregisters it and closes the channel.
func (h *Hub) Subscribe() (<-chan domain.Invalidation, func()) {
	ch := make(chan domain.Invalidation, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Broadcast never blocks. A subscriber whose buffer is full misses the event.
func (h *Hub) Broadcast(invalidation domain.Invalidation) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- invalidation:
		default:
			slog.Warn(
				"subscriber too slow, invalidation dropped",
				slog.String("origin", invalidation.Origin),
				slog.String("module", "hub"),
			)
		}
	}
}

// Publish lets the hub stand in for the redis signal on a single instance.
func (h *Hub) Publish(ctx context.Context, invalidation domain.Invalidation) error {
	h.Broadcast(invalidation)
	return nil
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
