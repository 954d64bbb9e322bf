// Package broadcaster manages resource-reload subscribers and distributes
// reload events to them.
package broadcaster

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscriber event buffer.
const DefaultBuffer = 16

// ReloadEvent describes one completed resource reload.
type ReloadEvent struct {
	Seq      uint64
	Pack     string
	Textures int
	At       time.Time
}

// Subscriber receives reload events on Events until it is unsubscribed or the
// broadcaster closes.
type Subscriber struct {
	ID     string
	Events chan *ReloadEvent
}

// Broadcaster fans reload events out to subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
	seq         atomic.Uint64
	dropped     atomic.Uint64
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber. It returns nil after Close.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan *ReloadEvent, DefaultBuffer),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Unknown ids are
// ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Notify sends a reload event to every subscriber and returns it. Subscribers
// whose buffer is full miss the event.
func (b *Broadcaster) Notify(pack string, textures int) *ReloadEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	event := &ReloadEvent{
		Seq:      b.seq.Add(1),
		Pack:     pack,
		Textures: textures,
		At:       time.Now(),
	}
	for _, sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			b.dropped.Add(1)
		}
	}
	return event
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}
