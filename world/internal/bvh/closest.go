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

// Йоу, чат! Пошук найближчого працює "спершу найкращий":
// в черзі лежать вузли, відсортовані по відстані до їх коробки.
// Відстань до коробки - це нижня межа відстані до всього всередині,
// тому як тільки вона більша за найкраще знайдене - можна зупинятись.

package bvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Closest повертає елемент з найменшою відстанню від p до його коробки
// і квадрат цієї відстані. Серед рівних перемагає перший знайдений.
func (t *Tree[T]) Closest(p mgl32.Vec3, geometry Geometry[T]) (elem T, dist2 float64, ok bool) {
	return t.ClosestFunc(p, geometry, nil)
}

// ClosestFunc - Closest, що пропускає елементи, для яких accept повертає false.
// nil accept приймає всіх.
func (t *Tree[T]) ClosestFunc(p mgl32.Vec3, geometry Geometry[T], accept func(T) bool) (elem T, dist2 float64, ok bool) {
	dist2 = math.Inf(1)
	if len(t.nodes) == 0 {
		return
	}
	scan := func(start, count int) {
		for _, e := range t.elems[start : start+count] {
			if accept != nil && !accept(e) {
				continue
			}
			if d := geometry(e).Dist2(p); d < dist2 {
				elem, dist2, ok = e, d, true
			}
		}
	}

	if start, count, leaf := t.nodes[0].Leaf(); leaf {
		scan(start, count)
		return
	}

	var queue searchHeap[float64]
	queue.push(t.nodes[0].Aabb.Dist2(p), 0)
	for queue.Len() > 0 {
		item := queue.pop()
		if item.key > dist2 {
			// Все, що лишилось в черзі, ще далі
			break
		}
		n := &t.nodes[item.node]
		if start, count, leaf := n.Leaf(); leaf {
			scan(start, count)
			continue
		}
		l, r, _ := n.Children()
		for _, c := range [2]int32{l, r} {
			if d := t.nodes[c].Aabb.Dist2(p); d <= dist2 {
				queue.push(d, c)
			}
		}
	}
	return
}
