package queue

import (
	"context"
	"sync"

	"github.com/emirpasic/gods/queues/priorityqueue"
)

// item wraps a queued value with its insertion sequence number, which breaks ties between values
// the comparator considers equal so that they come out in insertion order.
type item[T any] struct {
	value T
	seq   uint64
}

// Queue is a thread-safe, unbounded priority queue. Get returns the smallest element according to
// the comparator given to New; equal elements are returned in the order they were Put.
type Queue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond // used to wait for elements in the queue
	cmp   func(a, b interface{}) int
	elems *priorityqueue.Queue
	seq   uint64
}

// New creates a new queue ordered by cmp, which returns a negative number when a sorts before b,
// zero when they are equal, and a positive number otherwise.
func New[T any](cmp func(a, b T) int) *Queue[T] {
	q := &Queue[T]{
		cmp: func(a, b interface{}) int {
			x, y := a.(item[T]), b.(item[T])
			if c := cmp(x.value, y.value); c != 0 {
				return c
			}
			switch {
			case x.seq < y.seq:
				return -1
			case x.seq > y.seq:
				return 1
			default:
				return 0
			}
		},
	}
	q.elems = priorityqueue.NewWith(q.cmp)
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put adds an element to the queue. It never blocks.
func (q *Queue[T]) Put(t T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	q.elems.Enqueue(item[T]{value: t, seq: q.seq})
	q.cond.Signal()
}

// GetWithContext removes and returns the first element from the queue. If the queue is empty, then
// it will block until an element is available or the context is canceled.
func (q *Queue[T]) GetWithContext(ctx context.Context) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-done:
		}
	}()

	for q.elems.Empty() && ctx.Err() == nil {
		q.cond.Wait()
	}
	if ctx.Err() != nil {
		var t T
		return t, ctx.Err()
	}
	return q.pop(), nil
}

// TryGet removes and returns the first element if there is one, without blocking.
func (q *Queue[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.elems.Empty() {
		var t T
		return t, false
	}
	return q.pop(), true
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.elems.Size()
}

// Values returns a snapshot of the queued elements in the order Get would return them.
func (q *Queue[T]) Values() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	// The priority queue iterates in heap order, so drain a copy to get the dequeue order.
	cp := priorityqueue.NewWith(q.cmp)
	for _, v := range q.elems.Values() {
		cp.Enqueue(v)
	}
	out := make([]T, 0, cp.Size())
	for !cp.Empty() {
		v, _ := cp.Dequeue()
		out = append(out, v.(item[T]).value)
	}
	return out
}

func (q *Queue[T]) pop() T {
	v, _ := q.elems.Dequeue()
	return v.(item[T]).value
}
