// Package merger selects the best k items from one or more candidate lists
// with a bounded min-heap, so large candidate sets never get fully sorted.
package merger

import (
	"container/heap"
)

// TopK returns the best limit items of items, best first. better must be a
// strict total order; with limit <= 0 every item is returned sorted.
func TopK[T any](items []T, limit int, better func(a, b T) bool) []T {
	return Merge([][]T{items}, limit, better)
}

// Merge is TopK over the concatenation of lists.
func Merge[T any](lists [][]T, limit int, better func(a, b T) bool) []T {
	if limit <= 0 {
		limit = 0
		for _, l := range lists {
			limit += len(l)
		}
	}
	h := &boundedHeap[T]{worse: func(a, b T) bool { return better(b, a) }}
	for _, items := range lists {
		for _, item := range items {
			if h.Len() < limit {
				heap.Push(h, item)
				continue
			}
			if limit > 0 && better(item, h.items[0]) {
				h.items[0] = item
				heap.Fix(h, 0)
			}
		}
	}
	result := make([]T, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(T)
	}
	return result
}

// boundedHeap keeps the worst retained item at the root.
type boundedHeap[T any] struct {
	items []T
	worse func(a, b T) bool
}

func (h *boundedHeap[T]) Len() int { return len(h.items) }

func (h *boundedHeap[T]) Less(i, j int) bool { return h.worse(h.items[i], h.items[j]) }

func (h *boundedHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap[T]) Push(x any) {
	h.items = append(h.items, x.(T))
}

func (h *boundedHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
