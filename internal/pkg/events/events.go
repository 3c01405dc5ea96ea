// Package events is a small in-process publish/subscribe bus. Features announce that shared
// server state changed and interested parties refetch it, instead of reaching into each other.
package events

import (
	"sync"
)

// Topic names a kind of change.
type Topic string

const (
	// BalanceChanged is published after a marketplace mutation moved coins.
	BalanceChanged Topic = "balance.changed"
	// RecyclingSubmitted is published after a recycling submission was accepted.
	RecyclingSubmitted Topic = "recycling.submitted"
	// ProfileUpdated is published after the user's profile was edited.
	ProfileUpdated Topic = "profile.updated"
)

// Handler reacts to a published topic. Handlers run synchronously in the publisher's goroutine.
type Handler func(Topic)

// Publisher announces changes.
type Publisher interface {
	Publish(topic Topic)
}

// Bus dispatches published topics to the handlers subscribed to them.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic]map[int]Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]Handler)}
}

// Subscribe registers h for every topic in topics. The returned function removes the subscription.
func (b *Bus) Subscribe(h Handler, topics ...Topic) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	for _, t := range topics {
		if b.subs[t] == nil {
			b.subs[t] = make(map[int]Handler)
		}
		b.subs[t][id] = h
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, t := range topics {
				delete(b.subs[t], id)
			}
		})
	}
}

// Publish calls every handler subscribed to topic.
func (b *Bus) Publish(topic Topic) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(topic)
	}
}

// Nop discards every published topic.
type Nop struct{}

func (Nop) Publish(Topic) {}
