package ranker

import "container/heap"

// topK keeps the limit best-ranked candidates in a min-heap whose root is
// the worst result kept so far, then drains it into ranked order.
func topK(scores map[string]int, limit int) []RankedResult {
	h := &resultHeap{}
	heap.Init(h)
	for id, score := range scores {
		r := RankedResult{ID: id, PrimaryScore: score}
		if h.Len() < limit {
			heap.Push(h, r)
			continue
		}
		if Less(r, (*h)[0]) {
			(*h)[0] = r
			heap.Fix(h, 0)
		}
	}
	result := make([]RankedResult, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(RankedResult)
	}
	return result
}

type resultHeap []RankedResult

func (h resultHeap) Len() int { return len(h) }

func (h resultHeap) Less(i, j int) bool { return Less(h[j], h[i]) }

func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(RankedResult))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
