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

import "iter"

// RangeIter обходить елементи, чиї коробки перетинають target.
// Стек фіксованого розміру живе прямо в ітераторі, тому запит не виділяє пам'ять.
// Ітератор не можна копіювати після першого Next.
type RangeIter[T any] struct {
	tree     *Tree[T]
	geometry Geometry[T]
	target   Aabb

	stack [StackCapacity]int32
	sp    int
	leaf  []T // Ще не перевірені елементи поточного листа
}

// Range починає пошук. Geometry викликається для кожного кандидата з листа,
// тому результат завжди відповідає поточній геометрії елемента.
func (t *Tree[T]) Range(target Aabb, geometry Geometry[T]) RangeIter[T] {
	it := RangeIter[T]{tree: t, geometry: geometry, target: target}
	// Лист-корінь перевіряємо завжди: його коробка з часу побудови,
	// а елементи могли переїхати в target
	if len(t.nodes) > 0 && (t.nodes[0].IsLeaf() || t.nodes[0].Aabb.Collides(target)) {
		it.push(0)
	}
	return it
}

func (it *RangeIter[T]) push(node int32) {
	if it.sp == len(it.stack) {
		panic("bvh: range stack overflow, tree is deeper than StackCapacity")
	}
	it.stack[it.sp] = node
	it.sp++
}

// Next повертає наступний елемент, або ok=false коли елементи закінчились.
func (it *RangeIter[T]) Next() (elem T, ok bool) {
	for {
		for len(it.leaf) > 0 {
			e := it.leaf[0]
			it.leaf = it.leaf[1:]
			if it.geometry(e).Collides(it.target) {
				return e, true
			}
		}
		if it.sp == 0 {
			return elem, false
		}
		it.sp--
		n := &it.tree.nodes[it.stack[it.sp]]
		if start, count, ok := n.Leaf(); ok {
			it.leaf = it.tree.elems[start : start+count]
			continue
		}
		// Коробки дітей перевіряємо до того, як класти їх в стек.
		// Правий першим, щоб лівий вийшов першим
		l, r, _ := n.Children()
		nodes := it.tree.nodes
		if nodes[r].Aabb.Collides(it.target) {
			it.push(r)
		}
		if nodes[l].Aabb.Collides(it.target) {
			it.push(l)
		}
	}
}

// RangeSeq - те саме що Range, але як iter.Seq для range-over-func.
func (t *Tree[T]) RangeSeq(target Aabb, geometry Geometry[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		it := t.Range(target, geometry)
		for {
			e, ok := it.Next()
			if !ok || !yield(e) {
				return
			}
		}
	}
}

// Find викликає f для кожного елемента, що перетинає target, поки f повертає true.
func (t *Tree[T]) Find(target Aabb, geometry Geometry[T], f func(T) bool) {
	it := t.Range(target, geometry)
	for {
		e, ok := it.Next()
		if !ok || !f(e) {
			return
		}
	}
}

// AppendRange дописує в dst всі елементи, що перетинають target.
func (t *Tree[T]) AppendRange(dst []T, target Aabb, geometry Geometry[T]) []T {
	it := t.Range(target, geometry)
	for {
		e, ok := it.Next()
		if !ok {
			return dst
		}
		dst = append(dst, e)
	}
}
