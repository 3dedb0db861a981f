package dynamic

import (
	"sync"
	"sync/atomic"
)

// queue is a lock-free FIFO of transforms. Push and pop may run
// concurrently; there is one pushing goroutine (the Transactor, which
// serialises its callers) and one popping goroutine (the renderer).
type queue struct {
	head atomic.Pointer[queueItem]
	tail atomic.Pointer[queueItem]
	len  atomic.Int64
}

type queueItem struct {
	next atomic.Pointer[queueItem]
	v    Transform
}

var queueItemPool = sync.Pool{
	New: func() any { return &queueItem{} },
}

func newQueue() *queue {
	q := &queue{}
	sentinel := &queueItem{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	return q
}

// push appends t.
func (q *queue) push(t Transform) {
	item := queueItemPool.Get().(*queueItem)
	item.next.Store(nil)

	item.v = t

	for {
		last := q.tail.Load()
		next := last.next.Load()

		if q.tail.Load() != last {
			continue
		}

		if next != nil {
			q.tail.CompareAndSwap(last, next)

			continue
		}

		if last.next.CompareAndSwap(nil, item) {
			q.tail.CompareAndSwap(last, item)
			q.len.Add(1)

			return
		}
	}
}

// pop removes and returns the oldest transform, or nil if the queue is
// empty.
func (q *queue) pop() Transform {
	for {
		first := q.head.Load()
		last := q.tail.Load()
		next := first.next.Load()

		if first != q.head.Load() {
			continue
		}

		if first == last {
			if next == nil {
				return nil
			}

			q.tail.CompareAndSwap(last, next)

			continue
		}

		v := next.v

		if q.head.CompareAndSwap(first, next) {
			q.len.Add(-1)

			next.v = nil
			first.v = nil
			queueItemPool.Put(first)

			return v
		}
	}
}

// size returns the number of queued transforms.
func (q *queue) size() int {
	return int(q.len.Load())
}
