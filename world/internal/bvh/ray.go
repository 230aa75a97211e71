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

// FirstRayCollision повертає перший елемент, чию коробку перетинає промінь,
// і параметр t точки входу. Для одиничного Direction t - це відстань.
func (t *Tree[T]) FirstRayCollision(r Ray, geometry Geometry[T]) (elem T, dist float32, ok bool) {
	return t.FirstRayCollisionFunc(r, geometry, nil)
}

// FirstRayCollisionFunc - FirstRayCollision з фільтром елементів.
// Наприклад, гравець не повинен влучати сам у себе.
func (t *Tree[T]) FirstRayCollisionFunc(r Ray, geometry Geometry[T], accept func(T) bool) (elem T, dist float32, ok bool) {
	dist = inf
	if len(t.nodes) == 0 {
		return
	}
	scan := func(start, count int) {
		for _, e := range t.elems[start : start+count] {
			if accept != nil && !accept(e) {
				continue
			}
			if d, hit := geometry(e).IntersectRay(r); hit && d < dist {
				elem, dist, ok = e, d, true
			}
		}
	}

	root := &t.nodes[0]
	if start, count, leaf := root.Leaf(); leaf {
		scan(start, count)
		return
	}
	d, hit := root.Aabb.IntersectRay(r)
	if !hit {
		return
	}

	var queue searchHeap[float32]
	queue.push(d, 0)
	for queue.Len() > 0 {
		item := queue.pop()
		if item.key > dist {
			break
		}
		n := &t.nodes[item.node]
		if start, count, leaf := n.Leaf(); leaf {
			scan(start, count)
			continue
		}
		l, r2, _ := n.Children()
		for _, c := range [2]int32{l, r2} {
			if d, hit := t.nodes[c].Aabb.IntersectRay(r); hit && d <= dist {
				queue.push(d, c)
			}
		}
	}
	return
}
