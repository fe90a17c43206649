package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("bus: closed")

// Handler consumes a delivered message. Handlers run on the delivery
// goroutine; they must not block for long.
type Handler func(Message)

// Stats exposes the bus counters.
type Stats struct {
	Published int64
	Delivered int64
	Dropped   [4]int64 // indexed by Priority
}

// Bus is the priority-ordered publish/deliver mechanism. Create with
// New, attach subscribers, then Run the delivery loop.
type Bus struct {
	maxQueued int

	mu     sync.Mutex
	queues [numPriorities][]Message
	queued int
	closed bool
	notify chan struct{}

	subMu sync.RWMutex
	subs  map[string][]Handler

	published atomic.Int64
	delivered atomic.Int64
	dropped   [numPriorities]atomic.Int64
}

// New creates a bus holding at most maxQueued undelivered messages.
func New(maxQueued int) *Bus {
	if maxQueued <= 0 {
		maxQueued = 4096
	}
	return &Bus{
		maxQueued: maxQueued,
		notify:    make(chan struct{}, 1),
		subs:      make(map[string][]Handler),
	}
}

// Subscribe registers a handler for a message type. All handlers of a
// type see both direct and broadcast messages of that type.
func (b *Bus) Subscribe(msgType string, h Handler) {
	b.subMu.Lock()
	b.subs[msgType] = append(b.subs[msgType], h)
	b.subMu.Unlock()
}

// Publish enqueues a message. It never blocks: when the bus is
// saturated the lowest-priority queued message is evicted to make
// room, walking upward from Low. A non-Critical message that cannot
// claim a slot is itself dropped; a Critical message always wins one.
func (b *Bus) Publish(m Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	if b.queued >= b.maxQueued {
		if !b.evictLocked(m.Priority) && m.Priority != Critical {
			// Nothing below the incoming priority to evict.
			b.dropped[m.Priority].Add(1)
			b.mu.Unlock()
			return nil
		}
		// A saturated all-Critical queue still accepts Critical:
		// those are never dropped, the bound flexes instead.
	}

	b.queues[m.Priority] = append(b.queues[m.Priority], m)
	b.queued++
	b.mu.Unlock()

	b.published.Add(1)
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// evictLocked frees one slot by dropping the newest message of the
// lowest occupied class strictly below limit. Reports success.
func (b *Bus) evictLocked(limit Priority) bool {
	for p := Low; p > limit; p-- {
		q := b.queues[p]
		if len(q) == 0 {
			continue
		}
		b.queues[p] = q[:len(q)-1]
		b.queued--
		b.dropped[p].Add(1)
		return true
	}
	return false
}

// popLocked removes the highest-priority queued message.
func (b *Bus) popLocked() (Message, bool) {
	for p := Critical; p < numPriorities; p++ {
		q := b.queues[p]
		if len(q) == 0 {
			continue
		}
		m := q[0]
		b.queues[p] = q[1:]
		b.queued--
		return m, true
	}
	return Message{}, false
}

// Run delivers queued messages until ctx is done and the queue has
// been handed off. It is the single delivery goroutine.
func (b *Bus) Run(ctx context.Context) {
	for {
		b.mu.Lock()
		m, ok := b.popLocked()
		b.mu.Unlock()

		if !ok {
			select {
			case <-b.notify:
				continue
			case <-ctx.Done():
				return
			}
		}

		b.deliver(m)
	}
}

func (b *Bus) deliver(m Message) {
	b.subMu.RLock()
	handlers := b.subs[m.Type]
	b.subMu.RUnlock()

	if len(handlers) == 0 {
		slog.Debug("bus: no subscribers", "type", m.Type, "from", m.From)
		return
	}
	for _, h := range handlers {
		h(m)
	}
	b.delivered.Add(1)
}

// DrainOnce synchronously delivers everything currently queued.
// Intended for single-threaded cycles and tests; do not mix with a
// concurrent Run loop.
func (b *Bus) DrainOnce() int {
	n := 0
	for {
		b.mu.Lock()
		m, ok := b.popLocked()
		b.mu.Unlock()
		if !ok {
			return n
		}
		b.deliver(m)
		n++
	}
}

// Close rejects further publishes. Queued messages stay deliverable.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (b *Bus) Stats() Stats {
	s := Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
	for p := range b.dropped {
		s.Dropped[p] = b.dropped[p].Load()
	}
	return s
}

// QueueLen returns the number of undelivered messages.
func (b *Bus) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queued
}
