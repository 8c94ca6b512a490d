package sim

import "container/heap"

// readyQueue is a min-heap of operator registration indices. Popping the
// smallest index among ready operators keeps the resolved order stable
// across runs. See https://pkg.go.dev/container/heap#example-package-IntHeap
type readyQueue []int

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(int))
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[0 : n-1]
	return item
}

func (q *readyQueue) push(i int) { heap.Push(q, i) }

func (q *readyQueue) pop() int { return heap.Pop(q).(int) }
