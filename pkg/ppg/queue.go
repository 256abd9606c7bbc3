package ppg

import (
	"context"
	"sync/atomic"
)

// DefaultQueueCapacity holds ~0.3 s of samples at 100 Hz.
const DefaultQueueCapacity = 30

// Queue is a bounded FIFO handing raw samples from a single producer
// (interrupt context) to a single consumer (processing task).
//
// Push never blocks: when the queue is full the new sample is dropped and
// the overflow counter is incremented. Pop suspends until a sample arrives
// or the caller's cancel channel is closed.
type Queue struct {
	samples chan uint16

	pushed    atomic.Uint64
	overflows atomic.Uint64
}

// NewQueue creates a queue holding up to capacity samples.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		samples: make(chan uint16, capacity),
	}
}

// Push enqueues a sample without blocking. It returns false if the queue was
// full and the sample was dropped.
func (q *Queue) Push(v uint16) bool {
	select {
	case q.samples <- v:
		q.pushed.Add(1)
		return true
	default:
		q.overflows.Add(1)
		return false
	}
}

// Pop removes the oldest sample. It blocks until a sample is available,
// cancel is closed (ErrCancelled) or ctx is done.
// A closed cancel channel takes precedence over pending samples.
func (q *Queue) Pop(ctx context.Context, cancel <-chan struct{}) (uint16, error) {
	select {
	case <-cancel:
		return 0, ErrCancelled
	default:
	}

	select {
	case v := <-q.samples:
		return v, nil
	case <-cancel:
		return 0, ErrCancelled
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Flush discards all pending samples and returns how many were dropped.
// Only the consumer may call Flush.
func (q *Queue) Flush() int {
	n := 0
	for {
		select {
		case <-q.samples:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of pending samples.
func (q *Queue) Len() int {
	return len(q.samples)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.samples)
}

// Pushed returns the number of samples accepted so far.
func (q *Queue) Pushed() uint64 {
	return q.pushed.Load()
}

// Overflows returns the number of samples dropped because the queue was full.
func (q *Queue) Overflows() uint64 {
	return q.overflows.Load()
}
