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

import "fmt"

// Node - один вузол дерева в плоскому масиві (арені).
// Щоб не тримати окремий тег, тип вузла закодований знаком поля left:
//   - left >= 0: внутрішній вузол, left і right - індекси дітей в арені;
//   - left < 0: лист, елементи [-left-1, -left-1+right) в масиві елементів.
//
// Зсув на одиницю потрібен, щоб лист з початком 0 теж мав від'ємний left.
type Node struct {
	Aabb        Aabb
	left, right int32
}

func leafNode(aabb Aabb, start, count int) Node {
	return Node{Aabb: aabb, left: -int32(start) - 1, right: int32(count)}
}

func internalNode(aabb Aabb, left, right int32) Node {
	return Node{Aabb: aabb, left: left, right: right}
}

// IsLeaf повідомляє чи вузол є листом.
func (n *Node) IsLeaf() bool { return n.left < 0 }

// Leaf повертає діапазон елементів листа. ok=false для внутрішнього вузла.
func (n *Node) Leaf() (start, count int, ok bool) {
	if n.left >= 0 {
		return 0, 0, false
	}
	return int(-n.left - 1), int(n.right), true
}

// Children повертає індекси дітей. ok=false для листа.
func (n *Node) Children() (left, right int32, ok bool) {
	if n.left < 0 {
		return 0, 0, false
	}
	return n.left, n.right, true
}

func (n Node) String() string {
	if start, count, ok := n.Leaf(); ok {
		return fmt.Sprintf("leaf[%d:%d]", start, start+count)
	}
	return fmt.Sprintf("node{%d, %d}", n.left, n.right)
}
