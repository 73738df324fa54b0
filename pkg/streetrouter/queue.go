package streetrouter

import "container/heap"

// pqEntry is one priority-queue entry: a directed edge and the value it was
// pushed at. Stale entries (pushed at a value later improved upon) are left
// in place rather than removed and are discarded lazily when popped, the
// same decrease-key-by-reinsertion approach the corpus's contraction
// priority queue and witness search both use.
type pqEntry struct {
	edge  int32
	value float64
}

type pqHeap []pqEntry

func (h pqHeap) Len() int            { return len(h) }
func (h pqHeap) Less(i, j int) bool  { return h[i].value < h[j].value }
func (h pqHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pqHeap) Push(x interface{}) { *h = append(*h, x.(pqEntry)) }
func (h *pqHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// priorityQueue is a thin wrapper over container/heap carrying the stale-
// entry-skipping pop used by the search loop.
type priorityQueue struct {
	h pqHeap
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{}
}

func (q *priorityQueue) reset() {
	q.h = q.h[:0]
}

func (q *priorityQueue) push(edge int32, value float64) {
	heap.Push(&q.h, pqEntry{edge: edge, value: value})
}

func (q *priorityQueue) empty() bool {
	return len(q.h) == 0
}

// pop returns the lowest-value entry in the queue without checking
// staleness; the caller compares the popped value against the edge's
// current label and discards the entry if it no longer matches.
func (q *priorityQueue) pop() (int32, float64) {
	item := heap.Pop(&q.h).(pqEntry)
	return item.edge, item.value
}
