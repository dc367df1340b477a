package fiber

import (
	"container/heap"
	"time"
)

// noTimeout is the poller timeout meaning "wait indefinitely".
const noTimeout = -1

// timerItem associates a fiber with an absolute deadline. A fiber owns
// exactly one timerItem, embedded in its record; membership in the timer
// queue is orthogonal to membership in the ready/dead/poll wait lists.
type timerItem struct {
	fiber    *Fiber
	deadline time.Time
	seq      uint64 // insertion order, breaks deadline ties
	index    int    // heap index, -1 when not queued
	infinite bool   // stored but never expires
}

func (it *timerItem) linked() bool {
	return it.index >= 0
}

// timerQueue is an ordered store of (fiber, deadline) items backed by a
// min-heap with index back-pointers for O(log n) removal. Items with a
// negative duration are kept in the heap, ordered after every finite
// deadline, and never expire.
type timerQueue struct {
	items timerHeap
	seq   uint64
}

type timerHeap []*timerItem

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.infinite != b.infinite {
		return !a.infinite
	}
	if a.infinite {
		return a.seq < b.seq
	}
	if !a.deadline.Equal(b.deadline) {
		return a.deadline.Before(b.deadline)
	}
	return a.seq < b.seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	it := x.(*timerItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// add records it with deadline now+d. A negative d means no timeout: the item
// is stored but never expires. it must not already be queued.
func (q *timerQueue) add(it *timerItem, d time.Duration) {
	q.seq++
	it.seq = q.seq
	if d < 0 {
		it.infinite = true
		it.deadline = time.Time{}
	} else {
		it.infinite = false
		it.deadline = time.Now().Add(d)
	}
	heap.Push(&q.items, it)
}

// remove unlinks it if present. Idempotent.
func (q *timerQueue) remove(it *timerItem) {
	if it.index < 0 {
		return
	}
	heap.Remove(&q.items, it.index)
}

// nextTimeout returns the poll timeout in milliseconds: 0 if the earliest
// finite deadline is already due, the (ceiling-rounded) time until it
// otherwise, or noTimeout when the queue is empty or holds only infinite
// items.
func (q *timerQueue) nextTimeout() int {
	if len(q.items) == 0 || q.items[0].infinite {
		return noTimeout
	}
	d := time.Until(q.items[0].deadline)
	if d <= 0 {
		return 0
	}
	// Ceiling-round so the poll never wakes before the deadline is due.
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// drainDue removes up to cap(buf) items whose deadlines have passed,
// appending them to buf[:0] in deadline order. Returns the drained items.
func (q *timerQueue) drainDue(buf []*timerItem) []*timerItem {
	buf = buf[:0]
	now := time.Now()
	for len(q.items) > 0 && len(buf) < cap(buf) {
		top := q.items[0]
		if top.infinite || top.deadline.After(now) {
			break
		}
		heap.Pop(&q.items)
		buf = append(buf, top)
	}
	return buf
}

// len reports the number of stored items, including infinite ones.
func (q *timerQueue) len() int {
	return len(q.items)
}
