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

// Йоу, чат! Тут ми будуємо дерево з нуля.
// Алгоритм:
// 1. Рахуємо коробку кожного елемента (один раз!)
// 2. Поки в групі більше LeafSize елементів - евристика ріже її навпіл
// 3. Кожен розріз - внутрішній вузол, кожна мала група - лист
// 4. Великі групи будуємо паралельно на кількох горутинах

package bvh

import (
	"fmt"
	"math/bits"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultLeafSize - скільки елементів максимум лежить в одному листі.
	DefaultLeafSize = 16
	// DefaultParallelThreshold - з якого розміру групи варто запускати горутину.
	DefaultParallelThreshold = 4096

	// maxHeuristicDepth - глибше цього ріжемо тільки по медіані:
	// медіана додає не більше 31 рівня, і разом все влазить в StackCapacity.
	maxHeuristicDepth = 24
)

// Options - налаштування побудови. Нульове значення - розумні дефолти.
type Options struct {
	LeafSize  int       // 0 - DefaultLeafSize
	Heuristic Heuristic // nil - Median

	// Parallelism - скільки горутин можна зайняти. 0 - GOMAXPROCS, 1 - без паралелізму.
	// Округлюється вниз до степеня двійки: бінарна рекурсія ділить роботу рівно
	// тільки на 2, 4, 8... гілок.
	Parallelism       int
	ParallelThreshold int // 0 - DefaultParallelThreshold

	// Arena - арена для вузлів. nil - нова арена на кожну побудову.
	Arena *Arena
}

func (o Options) withDefaults() Options {
	if o.LeafSize < 1 {
		o.LeafSize = DefaultLeafSize
	}
	if o.Heuristic == nil {
		o.Heuristic = Median{}
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	o.Parallelism = floorPow2(o.Parallelism)
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = DefaultParallelThreshold
	}
	if o.Arena == nil {
		o.Arena = new(Arena)
	}
	return o
}

// floorPow2 округлює n вниз до степеня двійки.
func floorPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << (bits.Len(uint(n)) - 1)
}

// Build будує дерево з дефолтними налаштуваннями.
func Build[T any](elems []T, geometry Geometry[T]) *Tree[T] {
	return BuildWith(elems, geometry, Options{})
}

// BuildWith будує дерево над elems. Слайс переставляється на місці
// і позичається деревом: не змінюйте його, поки дерево використовується.
func BuildWith[T any](elems []T, geometry Geometry[T], opts Options) *Tree[T] {
	opts = opts.withDefaults()
	arena := opts.Arena
	arena.reset(len(elems))

	t := &Tree[T]{elems: elems}
	if len(elems) == 0 {
		// Порожнє дерево - один лист з Null коробкою,
		// тому будь-який запит просто нічого не знайде
		arena.nodes[arena.alloc()] = leafNode(Null, 0, 0)
		t.nodes = arena.nodes[:1]
		return t
	}

	boxes := arena.boxes[:len(elems)]
	for i := range elems {
		boxes[i] = geometry(elems[i])
	}

	b := builder[T]{
		elems:             elems,
		boxes:             boxes,
		arena:             arena,
		leafSize:          opts.LeafSize,
		heuristic:         opts.Heuristic,
		parallelThreshold: opts.ParallelThreshold,
	}
	root := arena.alloc()
	b.build(root, 0, len(elems), 1, opts.Parallelism)

	t.nodes = arena.nodes[:arena.used()]
	return t
}

type builder[T any] struct {
	elems []T
	boxes []Aabb
	arena *Arena

	leafSize          int
	heuristic         Heuristic
	parallelThreshold int
}

// build заповнює вузол idx для елементів [lo, hi).
// forks - скільки горутин ще можна відгалузити в цьому піддереві.
func (b *builder[T]) build(idx int32, lo, hi, depth, forks int) {
	n := hi - lo
	if n <= b.leafSize {
		bounds := Null
		for _, box := range b.boxes[lo:hi] {
			bounds = bounds.Union(box)
		}
		b.arena.nodes[idx] = leafNode(bounds, lo, n)
		return
	}

	mid := lo + b.split(lo, hi, depth)
	l, r := b.arena.alloc(), b.arena.alloc()

	if forks > 1 && n >= b.parallelThreshold {
		var g errgroup.Group
		g.Go(func() (err error) {
			defer recoverBuild(&err)
			b.build(l, lo, mid, depth+1, forks/2)
			return nil
		})
		b.build(r, mid, hi, depth+1, forks/2)
		// Паніка в горутині вбила б весь процес, тому переносимо її
		// в горутину, що викликала Build
		if err := g.Wait(); err != nil {
			panic(err)
		}
	} else {
		b.build(l, lo, mid, depth+1, forks)
		b.build(r, mid, hi, depth+1, forks)
	}

	nodes := b.arena.nodes
	nodes[idx] = internalNode(nodes[l].Aabb.Union(nodes[r].Aabb), l, r)
}

func recoverBuild(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("bvh: parallel build: %v", r)
	}
}

// split повертає точку розрізу відносно lo, гарантовано в (0, hi-lo).
func (b *builder[T]) split(lo, hi, depth int) int {
	s := span[T]{elems: b.elems[lo:hi], boxes: b.boxes[lo:hi]}
	h := b.heuristic
	if depth > maxHeuristicDepth {
		h = Median{}
	}
	mid := h.Split(s)
	if mid <= 0 || mid >= hi-lo {
		mid = Median{}.Split(s)
	}
	return mid
}

// span - відрізок елементів разом з їх коробками, реалізує Partition.
type span[T any] struct {
	elems []T
	boxes []Aabb
}

func (s span[T]) Len() int       { return len(s.boxes) }
func (s span[T]) Box(i int) Aabb { return s.boxes[i] }
func (s span[T]) Swap(i, j int) {
	s.elems[i], s.elems[j] = s.elems[j], s.elems[i]
	s.boxes[i], s.boxes[j] = s.boxes[j], s.boxes[i]
}
