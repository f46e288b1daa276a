// Package eventbus fans pipeline notifications out to in-process
// subscribers. It decouples the scheduler from the ops API: the
// websocket hub mirrors cycle summaries and new-DUID notices without
// the collectors knowing it exists.
package eventbus

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the pipeline.
const (
	TypeCycleSummary = "cycle.summary"
	TypeNewDUIDs     = "duid.new"
)

// Event is one pipeline occurrence. Dataset names the feed it concerns
// (empty for whole-cycle events); Data carries the typed payload.
type Event struct {
	Type      string
	Dataset   string
	Timestamp time.Time
	Data      interface{}
}

// Subscriber channel capacity. A consumer that falls this far behind
// loses events rather than stall the scheduler.
const subscriberBuffer = 64

// Bus routes events by type over buffered channels it owns. Safe for
// concurrent use.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]chan Event
	closed  bool
	dropped atomic.Uint64
}

func New() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe returns a channel receiving every event whose type is
// listed. The bus owns the channel and never closes it, so receivers
// drain cleanly across Close.
func (b *Bus) Subscribe(types ...string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.subs[t] = append(b.subs[t], ch)
	}
	return ch
}

// Publish delivers evt to the subscribers of its type, stamping the
// current time when the caller left Timestamp zero. Delivery never
// blocks the publisher; a full subscriber loses the event. No-op after
// Close.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs[evt.Type] {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
			log.Printf("[eventbus] dropped %s event for a slow subscriber", evt.Type)
		}
	}
}

// Dropped reports how many deliveries were lost to full subscriber
// channels over the bus's lifetime.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close stops delivery; subsequent publishes are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
