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

// Йоу, чат! Тут перевіряємо що будівельник не бреше:
// кожна коробка вузла рівно охоплює дітей, кожен елемент лежить рівно в одному листі.

package bvh

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// item - тестовий елемент, що сам знає свою коробку.
type item struct {
	id   int
	aabb Aabb
}

func (i item) Aabb() Aabb { return i.aabb }

func randomItems(r *rand.Rand, n int, world, size float32) []item {
	items := make([]item, n)
	for i := range items {
		center := mgl32.Vec3{r.Float32() * world, r.Float32() * world, r.Float32() * world}
		half := mgl32.Vec3{r.Float32() * size, r.Float32() * size, r.Float32() * size}
		items[i] = item{id: i, aabb: Around(center, half)}
	}
	return items
}

// checkTree перевіряє структурні інваріанти дерева.
func checkTree[T any](t *testing.T, tree *Tree[T], geometry Geometry[T], leafSize int) {
	t.Helper()
	nodes := tree.Nodes()
	elems := tree.Elements()
	if len(nodes) == 0 {
		t.Fatal("tree has no nodes")
	}
	if n := len(elems); n > 0 && len(nodes) > 2*n-1 {
		t.Errorf("tree has %d nodes for %d elements", len(nodes), n)
	}

	covered := make([]int, len(elems))
	var walk func(idx int32, depth int) Aabb
	walk = func(idx int32, depth int) Aabb {
		if depth > StackCapacity {
			t.Fatalf("tree depth %d exceeds stack capacity", depth)
		}
		n := &nodes[idx]
		if start, count, ok := n.Leaf(); ok {
			if count > leafSize && len(elems) > 0 {
				t.Errorf("leaf %d holds %d elements, leaf size is %d", idx, count, leafSize)
			}
			want := Null
			for i := start; i < start+count; i++ {
				covered[i]++
				want = want.Union(geometry(elems[i]))
			}
			if n.Aabb != want {
				t.Errorf("leaf %d aabb = %v, want %v", idx, n.Aabb, want)
			}
			return n.Aabb
		}
		l, r, _ := n.Children()
		want := walk(l, depth+1).Union(walk(r, depth+1))
		if n.Aabb != want {
			t.Errorf("node %d aabb = %v, want union of children %v", idx, n.Aabb, want)
		}
		return n.Aabb
	}
	walk(0, 1)

	for i, c := range covered {
		if c != 1 {
			t.Errorf("element %d is covered by %d leaves", i, c)
		}
	}
	for _, e := range elems {
		if !tree.Bounds().Contains(geometry(e)) {
			t.Errorf("root %v does not contain %v", tree.Bounds(), geometry(e))
		}
	}
}

func TestBuild_Invariants(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	heuristics := map[string]Heuristic{
		"median": Median{},
		"sah":    SAH{},
		"sah4":   SAH{Bins: 4},
	}
	for name, h := range heuristics {
		for _, n := range []int{0, 1, 2, 3, 17, 100, 1000} {
			for _, leafSize := range []int{1, 4, 16} {
				t.Run(fmt.Sprintf("%s/n=%d/leaf=%d", name, n, leafSize), func(t *testing.T) {
					items := randomItems(r, n, 1000, 5)
					tree := BuildWith(items, Self[item], Options{LeafSize: leafSize, Heuristic: h})
					if tree.Len() != n {
						t.Fatalf("Len = %d, want %d", tree.Len(), n)
					}
					checkTree(t, tree, Self[item], leafSize)
				})
			}
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	tree := Build[item](nil, Self[item])
	root := tree.Root()
	if root == nil {
		t.Fatal("empty tree has no root")
	}
	start, count, ok := root.Leaf()
	if !ok || start != 0 || count != 0 {
		t.Errorf("root = %v, want empty leaf", root)
	}
	if !root.Aabb.IsNull() {
		t.Errorf("root aabb = %v, want Null", root.Aabb)
	}
	if s := tree.Stats(); s.Nodes != 1 || s.Leaves != 1 || s.Depth != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestBuild_Single(t *testing.T) {
	box := unitBox(3, 4, 5)
	tree := Build([]Aabb{box}, Self[Aabb])
	if len(tree.Nodes()) != 1 {
		t.Fatalf("single element tree has %d nodes", len(tree.Nodes()))
	}
	if _, count, ok := tree.Root().Leaf(); !ok || count != 1 {
		t.Errorf("root = %v, want leaf with one element", tree.Root())
	}
	if tree.Bounds() != box {
		t.Errorf("Bounds = %v, want %v", tree.Bounds(), box)
	}
}

func TestBuild_IdenticalPoints(t *testing.T) {
	// Всі елементи в одній точці: центри нічим не розділити,
	// будівельник мусить різати по індексу і не зациклитись
	for _, h := range []Heuristic{Median{}, SAH{}} {
		items := make([]item, 5000)
		for i := range items {
			items[i] = item{id: i, aabb: Point(mgl32.Vec3{7, 7, 7})}
		}
		tree := BuildWith(items, Self[item], Options{LeafSize: 1, Heuristic: h})
		checkTree(t, tree, Self[item], 1)
		if d := tree.Stats().Depth; d > 14 {
			t.Errorf("%T: depth %d for 5000 identical points", h, d)
		}
	}
}

func TestBuild_ManyDuplicates(t *testing.T) {
	// Половина гравців стоїть на спавні, решта розкидана
	r := rand.New(rand.NewSource(2))
	items := randomItems(r, 2000, 500, 1)
	for i := 0; i < len(items); i += 2 {
		items[i].aabb = Around(mgl32.Vec3{0, 64, 0}, mgl32.Vec3{0.3, 0.9, 0.3})
	}
	tree := BuildWith(items, Self[item], Options{LeafSize: 2})
	checkTree(t, tree, Self[item], 2)
}

func TestBuild_Parallel(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	items := randomItems(r, 20000, 2000, 3)
	for _, h := range []Heuristic{Median{}, SAH{}} {
		tree := BuildWith(items, Self[item], Options{
			LeafSize:          8,
			Heuristic:         h,
			Parallelism:       8,
			ParallelThreshold: 256,
		})
		checkTree(t, tree, Self[item], 8)
	}
}

// leftPanic падає на будь-якій групі, що повністю лежить в x < 0
type leftPanic struct{}

func (leftPanic) Split(p Partition) int {
	for i := 0; i < p.Len(); i++ {
		if p.Box(i).Max[0] >= 0 {
			return Median{}.Split(p)
		}
	}
	panic("left half")
}

func TestBuild_ParallelPanicReachesCaller(t *testing.T) {
	boxes := make([]Aabb, 64)
	for i := range boxes {
		boxes[i] = Point(mgl32.Vec3{float32(i) - 31.5, 0, 0})
	}
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !strings.Contains(err.Error(), "left half") {
			t.Errorf("recovered %v, want an error about the left half", r)
		}
	}()
	BuildWith(boxes, Self[Aabb], Options{
		LeafSize:          4,
		Heuristic:         leftPanic{},
		Parallelism:       2,
		ParallelThreshold: 64,
	})
	t.Error("BuildWith returned without panicking")
}

func TestBuild_ArenaReuse(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	arena := NewArena(1000)
	capacity := arena.Cap()
	if capacity < 2*1000-1 {
		t.Fatalf("arena capacity %d is too small", capacity)
	}
	for tick := 0; tick < 10; tick++ {
		items := randomItems(r, 500+r.Intn(500), 100, 2)
		tree := BuildWith(items, Self[item], Options{LeafSize: 4, Arena: arena})
		checkTree(t, tree, Self[item], 4)
	}
	if arena.Cap() != capacity {
		t.Errorf("arena reallocated: capacity %d -> %d", capacity, arena.Cap())
	}

	// Більше елементів - арена росте
	items := randomItems(r, 3000, 100, 2)
	tree := BuildWith(items, Self[item], Options{LeafSize: 1, Arena: arena})
	checkTree(t, tree, Self[item], 1)
	if arena.Cap() < 2*3000-1 {
		t.Errorf("arena did not grow: capacity %d", arena.Cap())
	}
}

func TestBuild_Accessor(t *testing.T) {
	// Елементи - легкі ID, геометрія лежить окремо
	positions := []mgl32.Vec3{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {10, 10, 0}, {5, 5, 5}}
	geometry := func(id int32) Aabb { return Point(positions[id]) }
	ids := []int32{0, 1, 2, 3, 4}
	tree := BuildWith(ids, geometry, Options{LeafSize: 1})
	checkTree(t, tree, geometry, 1)
	if s := tree.Stats(); s.Leaves != 5 || s.Nodes != 9 {
		t.Errorf("Stats = %+v, want 5 leaves and 9 nodes", s)
	}
}

func TestFloorPow2(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 2: 2, 3: 2, 4: 4, 6: 4, 8: 8, 12: 8, 64: 64, 100: 64} {
		if got := floorPow2(in); got != want {
			t.Errorf("floorPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSelectNth(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for _, n := range []int{1, 2, 5, 100, 1001} {
		items := randomItems(r, n, 100, 1)
		// Трохи дублікатів
		for i := 0; i < n/3; i++ {
			items[r.Intn(n)].aabb = items[0].aabb
		}
		boxes := make([]Aabb, n)
		for i := range items {
			boxes[i] = items[i].aabb
		}
		s := span[item]{elems: items, boxes: boxes}
		k := n / 2
		selectNth(s, 0, k)
		pivot := centroid(boxes[k], 0)
		for i := range boxes {
			c := centroid(boxes[i], 0)
			if i < k && c > pivot || i > k && c < pivot {
				t.Fatalf("n=%d: element %d (%v) on the wrong side of pivot %v", n, i, c, pivot)
			}
			if items[i].aabb != boxes[i] {
				t.Fatalf("elements and boxes are out of sync at %d", i)
			}
		}
	}
}

func TestTree_String(t *testing.T) {
	ids := []int{0, 1, 2, 3}
	geometry := func(id int) Aabb { return unitBox(float32(id)*10, 0, 0) }
	tree := BuildWith(ids, geometry, Options{LeafSize: 1})
	if got, want := tree.String(), "{{[0], [1]}, {[2], [3]}}"; got != want {
		t.Errorf("String = %s, want %s", got, want)
	}
	var zero Tree[int]
	if got := zero.String(); got != "[]" {
		t.Errorf("zero tree String = %s", got)
	}
}

func BenchmarkBuild_Median(b *testing.B) { benchmarkBuild(b, Median{}) }
func BenchmarkBuild_SAH(b *testing.B)    { benchmarkBuild(b, SAH{}) }

func benchmarkBuild(b *testing.B, h Heuristic) {
	for _, n := range []int{1000, 10000, 100000} {
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			r := rand.New(rand.NewSource(1))
			src := randomItems(r, n, 1e4, 1)
			items := make([]item, n)
			arena := NewArena(n)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				copy(items, src)
				BuildWith(items, Self[item], Options{Heuristic: h, Arena: arena})
			}
		})
	}
}
