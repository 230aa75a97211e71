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

// Йоу, чат! Сьогодні ми розберемо як працює BVH дерево!
// BVH (Bounding Volume Hierarchy) - це дерево, де кожен вузол
// містить коробку, яка повністю охоплює всі коробки нижче.
// Наше дерево ніколи не оновлюється по шматочках: кожен тік ми будуємо
// його з нуля, а потім скільки завгодно горутин одночасно його читають.
// Ніяких м'ютексів - дерево після побудови просто ніхто не змінює.

package bvh

import (
	"fmt"
	"strings"
)

// StackCapacity - місткість стеку обходу в Range.
// Будівельник гарантує, що глибина дерева сюди влазить.
const StackCapacity = 64

// HasAabb реалізують елементи, які самі знають свою геометрію.
type HasAabb interface {
	Aabb() Aabb
}

// Geometry повертає поточну коробку елемента.
// Для "легких" елементів (ID сутності) функція дивиться в зовнішнє сховище
// в момент виклику, тому дерево ніколи не кешує застарілу геометрію елемента.
// Функція мусить бути безпечною для одночасного виклику з багатьох горутин.
type Geometry[T any] func(T) Aabb

// Self - стандартна Geometry для типів, що реалізують HasAabb.
func Self[T HasAabb](e T) Aabb { return e.Aabb() }

// Tree - незмінне після побудови BVH дерево.
// Корінь завжди лежить в nodes[0]. Масив елементів позичений у того,
// хто викликав Build: будівельник переставляє його на місці.
// Нульове значення Tree - коректне порожнє дерево.
type Tree[T any] struct {
	nodes []Node
	elems []T
}

// Len повертає кількість елементів у дереві.
func (t *Tree[T]) Len() int { return len(t.elems) }

// Root повертає кореневий вузол, або nil для нульового дерева.
func (t *Tree[T]) Root() *Node {
	if len(t.nodes) == 0 {
		return nil
	}
	return &t.nodes[0]
}

// Bounds повертає коробку всього дерева.
func (t *Tree[T]) Bounds() Aabb {
	if len(t.nodes) == 0 {
		return Null
	}
	return t.nodes[0].Aabb
}

// Nodes повертає арену вузлів. Тільки для читання.
func (t *Tree[T]) Nodes() []Node { return t.nodes }

// Elements повертає переставлений масив елементів. Тільки для читання.
func (t *Tree[T]) Elements() []T { return t.elems }

// Stats - статистика побудованого дерева для логів та моніторингу.
type Stats struct {
	Nodes    int
	Leaves   int
	Depth    int
	Elements int
}

// Stats обходить дерево і рахує вузли, листи та максимальну глибину.
func (t *Tree[T]) Stats() Stats {
	s := Stats{Nodes: len(t.nodes), Elements: len(t.elems)}
	if len(t.nodes) == 0 {
		return s
	}
	type frame struct{ node, depth int32 }
	stack := []frame{{0, 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.Depth = max(s.Depth, int(f.depth))
		if l, r, ok := t.nodes[f.node].Children(); ok {
			stack = append(stack, frame{l, f.depth + 1}, frame{r, f.depth + 1})
		} else {
			s.Leaves++
		}
	}
	return s
}

// String повертає текстове представлення дерева, наприклад {[0 1], {[2], [3]}}
func (t *Tree[T]) String() string {
	if len(t.nodes) == 0 {
		return "[]"
	}
	var sb strings.Builder
	t.writeNode(&sb, 0)
	return sb.String()
}

func (t *Tree[T]) writeNode(sb *strings.Builder, idx int32) {
	n := &t.nodes[idx]
	if start, count, ok := n.Leaf(); ok {
		fmt.Fprint(sb, t.elems[start:start+count])
		return
	}
	l, r, _ := n.Children()
	sb.WriteByte('{')
	t.writeNode(sb, l)
	sb.WriteString(", ")
	t.writeNode(sb, r)
	sb.WriteByte('}')
}
