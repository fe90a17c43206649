package buffer

import (
	"context"
	"sync/atomic"
)

// SPSC is a bounded single-producer/single-consumer queue. The
// producer side (TryPush) is non-blocking and allocation-free; when
// the queue is full the element is dropped and counted. The consumer
// side may block via Pop, which is the decision domain's only
// suspension point on this boundary.
//
// Exactly one goroutine may push and exactly one may pop.
type SPSC[T any] struct {
	buf  []T
	mask int64

	head atomic.Int64 // next slot to read, advanced by consumer
	tail atomic.Int64 // next slot to write, advanced by producer

	dropped atomic.Int64
	notify  chan struct{}
	closed  atomic.Bool
}

// NewSPSC creates a queue with capacity rounded up to a power of two.
func NewSPSC[T any](capacity int) *SPSC[T] {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &SPSC[T]{
		buf:    make([]T, n),
		mask:   int64(n - 1),
		notify: make(chan struct{}, 1),
	}
}

// TryPush enqueues v and reports success. On a full queue v is
// dropped, the drop counter is incremented and false is returned. The
// producer never waits.
func (q *SPSC[T]) TryPush(v T) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() > q.mask {
		q.dropped.Add(1)
		return false
	}
	q.buf[tail&q.mask] = v
	q.tail.Store(tail + 1)

	// Wake the consumer if it is parked. The buffered channel makes
	// this a non-blocking signal.
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// TryPop dequeues the next element without blocking.
func (q *SPSC[T]) TryPop() (v T, ok bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return v, false
	}
	v = q.buf[head&q.mask]
	q.head.Store(head + 1)
	return v, true
}

// Pop dequeues the next element, waiting until one is available, the
// queue is closed (ok=false) or ctx is done (ctx.Err returned).
func (q *SPSC[T]) Pop(ctx context.Context) (v T, ok bool, err error) {
	for {
		if v, ok := q.TryPop(); ok {
			return v, true, nil
		}
		if q.closed.Load() {
			return v, false, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return v, false, ctx.Err()
		}
	}
}

// Close marks the queue closed. Pending elements remain readable;
// Pop returns ok=false once drained.
func (q *SPSC[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of queued elements.
func (q *SPSC[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Dropped returns the number of elements rejected by TryPush.
func (q *SPSC[T]) Dropped() int64 {
	return q.dropped.Load()
}
