package chat

import (
	"sync"

	"github.com/google/uuid"

	"ajopay/internal/domain"
)

// Hub fans out persisted messages to live thread subscribers. Slow
// subscribers are dropped rather than blocking the sender.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan *domain.ChatMessage]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[uuid.UUID]map[chan *domain.ChatMessage]struct{}),
	}
}

// Subscribe registers a listener on a thread. The returned channel is
// buffered; call the cancel func to detach.
func (h *Hub) Subscribe(threadID uuid.UUID) (<-chan *domain.ChatMessage, func()) {
	ch := make(chan *domain.ChatMessage, 16)

	h.mu.Lock()
	if h.subs[threadID] == nil {
		h.subs[threadID] = make(map[chan *domain.ChatMessage]struct{})
	}
	h.subs[threadID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[threadID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, threadID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers a message to every live subscriber of its thread.
func (h *Hub) Broadcast(threadID uuid.UUID, msg *domain.ChatMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[threadID] {
		select {
		case ch <- msg:
		default:
			// subscriber buffer full, skip
		}
	}
}
