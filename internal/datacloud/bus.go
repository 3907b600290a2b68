package datacloud

import (
	"sync"

	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// EventBus provides in-memory fan-out of logged events to WebSocket
// subscribers watching the live feed.
type EventBus struct {
	mu   sync.RWMutex
	subs []*subscriber
}

type subscriber struct {
	ch     chan StoredEvent
	closed bool
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe returns a channel that receives every published event. Call
// the returned function to unsubscribe and close the channel.
func (b *EventBus) Subscribe() (<-chan StoredEvent, func()) {
	ch := make(chan StoredEvent, 64)
	sub := &subscriber{ch: ch}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				if !s.closed {
					s.closed = true
					close(s.ch)
				}
				break
			}
		}
	}

	return ch, unsub
}

// Publish sends an event to all subscribers. Slow consumers whose buffers
// are full have events dropped rather than blocking the webhook path.
func (b *EventBus) Publish(e StoredEvent) {
	b.mu.RLock()
	subs := make([]*subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			svclog.Log.Warn("Dropping event for slow WebSocket subscriber",
				"event_id", e.ID)
		}
	}
}

// SubscriberCount reports how many feeds are attached.
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
