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

import "go.uber.org/atomic"

// Arena - арена для вузлів дерева, яку можна перевикористовувати кожен тік.
// Вузли видаються атомарним курсором, тому паралельні гілки будівельника
// спокійно беруть індекси одночасно.
//
// Дерево, побудоване в арені, живе тільки до наступного Build з цією ж ареною.
// Одна арена - одна побудова за раз.
type Arena struct {
	nodes  []Node
	boxes  []Aabb
	cursor atomic.Int32
}

// NewArena створює арену, готову до дерев на elements елементів без перевиділення.
func NewArena(elements int) *Arena {
	a := new(Arena)
	a.reset(elements)
	return a
}

// Cap повертає скільки вузлів вміщує арена без перевиділення.
func (a *Arena) Cap() int { return cap(a.nodes) }

// reset готує арену під побудову дерева на n елементів.
// Бінарне дерево, де кожен лист має хоч один елемент, має не більше 2n-1 вузлів.
func (a *Arena) reset(n int) {
	need := max(1, 2*n-1)
	if cap(a.nodes) < need {
		a.nodes = make([]Node, need)
	} else {
		a.nodes = a.nodes[:need]
	}
	if cap(a.boxes) < n {
		a.boxes = make([]Aabb, n)
	} else {
		a.boxes = a.boxes[:n]
	}
	a.cursor.Store(0)
}

// alloc видає наступний вільний індекс.
func (a *Arena) alloc() int32 {
	idx := a.cursor.Inc() - 1
	if int(idx) >= len(a.nodes) {
		panic("bvh: arena overflow, builder produced more than 2n-1 nodes")
	}
	return idx
}

// used повертає кількість виданих вузлів.
func (a *Arena) used() int { return int(a.cursor.Load()) }
