// Copyright 2024 irec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import "container/heap"

type weightedItem struct {
	item   int32
	weight float32
}

type weightedHeap []weightedItem

func (h weightedHeap) Len() int           { return len(h) }
func (h weightedHeap) Less(i, j int) bool { return h[i].weight < h[j].weight }
func (h weightedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *weightedHeap) Push(x any) {
	*h = append(*h, x.(weightedItem))
}

func (h *weightedHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopKFilter filters out top k items with maximum weights.
type TopKFilter struct {
	items weightedHeap
	k     int
}

// NewTopKFilter creates a top k filter.
func NewTopKFilter(k int) *TopKFilter {
	return &TopKFilter{items: make(weightedHeap, 0, k+1), k: k}
}

// Len returns the number of items in the filter.
func (filter *TopKFilter) Len() int {
	return filter.items.Len()
}

// Push pushes an item with a weight, evicting the lightest item once more than
// k items are held.
func (filter *TopKFilter) Push(item int32, weight float32) {
	heap.Push(&filter.items, weightedItem{item, weight})
	if filter.items.Len() > filter.k {
		heap.Pop(&filter.items)
	}
}

// PopAll pops all items in the filter with decreasing order.
func (filter *TopKFilter) PopAll() ([]int32, []float32) {
	items := make([]int32, filter.items.Len())
	weights := make([]float32, filter.items.Len())
	for i := len(items) - 1; i >= 0; i-- {
		elem := heap.Pop(&filter.items).(weightedItem)
		items[i], weights[i] = elem.item, elem.weight
	}
	return items, weights
}
