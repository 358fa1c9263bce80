// Package reload tells connected dashboards to reload when the files that
// make up the dashboard change on disk.
package reload

import (
	"log/slog"
	"sync"
)

// Event types sent on the reload stream.
const (
	EventConnected = "connected"
	EventReload    = "reload"
)

// Broker fans events out to SSE subscribers.
type Broker struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

// NewBroker creates an empty broker.
func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		logger:      logger,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives SSE-formatted events.
// The caller must call Unsubscribe when done.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	_, ok := b.subscribers[ch]
	delete(b.subscribers, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Subscribers returns the number of connected subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish sends an event to all subscribers. A subscriber whose buffer is
// full misses the event.
func (b *Broker) Publish(eventType, data string) {
	event := FormatSSE(eventType, data)

	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Debug("reload: dropped event for slow subscribers", "event", eventType, "dropped", dropped)
	}
}

// FormatSSE formats one Server-Sent Events message.
func FormatSSE(eventType, data string) []byte {
	return []byte("event: " + eventType + "\ndata: " + data + "\n\n")
}
