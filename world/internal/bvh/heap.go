// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package bvh

import (
	"container/heap"
	"math"

	"golang.org/x/exp/constraints"
)

// searchHeap - черга з пріоритетом для пошуку "спершу найкращий".
// Ключ - нижня межа відстані до будь-чого в піддереві вузла.
type (
	searchHeap[K constraints.Float] []searchItem[K]
	searchItem[K constraints.Float] struct {
		key  K     // Нижня межа відстані
		node int32 // Індекс вузла в арені
	}
)

func (h searchHeap[K]) Len() int           { return len(h) }
func (h searchHeap[K]) Less(i, j int) bool { return h[i].key < h[j].key }
func (h searchHeap[K]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *searchHeap[K]) Push(x any)        { *h = append(*h, x.(searchItem[K])) }
func (h *searchHeap[K]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// push кладе вузол в чергу. NaN зламав би порядок купи,
// тому такий ключ - це помилка виклику, а не "дуже далеко".
func (h *searchHeap[K]) push(key K, node int32) {
	if math.IsNaN(float64(key)) {
		panic("bvh: NaN distance in search queue")
	}
	heap.Push(h, searchItem[K]{key: key, node: node})
}

func (h *searchHeap[K]) pop() searchItem[K] {
	return heap.Pop(h).(searchItem[K])
}
