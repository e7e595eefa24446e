// Package queue provides a generic heap based priority queue.
package queue

import (
	"container/heap"
)

// inner implements heap.Interface over the queued values
type inner[E any] struct {
	items   []E
	cmpFunc func(E, E) int
}

// PriorityQueue pops values in ascending cmpFunc order
type PriorityQueue[E any] struct {
	h inner[E]
}

// NewPriorityQueue creates a new heap based PriorityQueue using cmpFunc as
// the comparison function. cmpFunc follows cmp.Compare: negative when a
// should come out before b.
func NewPriorityQueue[E any](cmpFunc func(E, E) int) *PriorityQueue[E] {
	return &PriorityQueue[E]{h: inner[E]{cmpFunc: cmpFunc}}
}

// Len returns the number of items in the queue
func (pq *PriorityQueue[E]) Len() int {
	return pq.h.Len()
}

// Push adds x to the queue
func (pq *PriorityQueue[E]) Push(x E) {
	heap.Push(&pq.h, x)
}

// Pop removes and returns the next item in the queue
func (pq *PriorityQueue[E]) Pop() E {
	return heap.Pop(&pq.h).(E)
}

// Peek returns the next item in the queue without removing it
func (pq *PriorityQueue[E]) Peek() E {
	return pq.h.items[0]
}

func (h *inner[E]) Len() int {
	return len(h.items)
}

func (h *inner[E]) Less(i, j int) bool {
	return h.cmpFunc(h.items[i], h.items[j]) < 0
}

func (h *inner[E]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *inner[E]) Push(x any) {
	h.items = append(h.items, x.(E))
}

func (h *inner[E]) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	var zero E
	old[n-1] = zero // drop the reference
	h.items = old[:n-1]
	return x
}
