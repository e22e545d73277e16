package kratos

import (
	"context"
	"sync"

	"account-service/app/domain"
)

const subscriberBuffer = 16

// eventHub fans session changes out to subscribers. A subscriber that falls
// behind loses its oldest pending events, never the newest.
type eventHub struct {
	mu     sync.Mutex
	subs   map[uint64]chan domain.AuthEvent
	nextID uint64
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[uint64]chan domain.AuthEvent)}
}

func (h *eventHub) subscribe(ctx context.Context) <-chan domain.AuthEvent {
	ch := make(chan domain.AuthEvent, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

func (h *eventHub) publish(event domain.AuthEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- event:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *eventHub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
