// Package event provides a small synchronous pub/sub bus for staging
// notifications. Topics are dotted names ("stage.added"); subscriptions
// match an exact topic, a "prefix.*" pattern, or "*" for everything.
package event

import (
	"sync"
	"time"
)

// Handler consumes a published event.
type Handler func(topic string, data map[string]any)

type subscription struct {
	pattern string
	fn      Handler
}

// Bus dispatches events to matching subscribers. Delivery is synchronous
// on the publisher's goroutine; handlers must not block.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]subscription
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe registers a handler for a topic pattern and returns its id.
func (b *Bus) Subscribe(pattern string, fn Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.subs[b.next] = subscription{pattern: pattern, fn: fn}
	return b.next
}

// Unsubscribe removes a subscription by id.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Publish delivers an event to every matching subscriber. A timestamp is
// added under "timestamp" when absent.
func (b *Bus) Publish(topic string, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	if _, ok := data["timestamp"]; !ok {
		data["timestamp"] = time.Now().UnixMilli()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if matchTopic(sub.pattern, topic) {
			handlers = append(handlers, sub.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(topic, data)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func matchTopic(pattern, topic string) bool {
	if pattern == "*" || pattern == topic {
		return true
	}
	if n := len(pattern); n > 1 && pattern[n-1] == '*' && pattern[n-2] == '.' {
		prefix := pattern[:n-1]
		return len(topic) > len(prefix) && topic[:len(prefix)] == prefix
	}
	return false
}
