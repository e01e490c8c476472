package realtime

import (
	"sync"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

// Bus is a typed publish/subscribe dispatcher for inbound realtime events.
// Any number of independent subscribers may observe the same event kind;
// registering never replaces an existing handler.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[domain.EventType]map[int]ports.EventHandler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[domain.EventType]map[int]ports.EventHandler)}
}

// Subscribe registers a handler and returns its cancel function. Cancelling
// twice is safe.
func (b *Bus) Subscribe(t domain.EventType, h ports.EventHandler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[t] == nil {
		b.subs[t] = make(map[int]ports.EventHandler)
	}
	id := b.next
	b.next++
	b.subs[t][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if handlers, ok := b.subs[t]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.subs, t)
			}
		}
	}
}

// Publish delivers the frame to every subscriber of its type. Handlers are
// invoked synchronously on the caller's goroutine, outside the lock.
func (b *Bus) Publish(frame domain.Frame) {
	b.mu.RLock()
	handlers := make([]ports.EventHandler, 0, len(b.subs[frame.Type]))
	for _, h := range b.subs[frame.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(frame)
	}
}

// Clear drops every registration, e.g. on disconnect.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[domain.EventType]map[int]ports.EventHandler)
}
