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

// Йоу, чат! Кожен запит порівнюємо з тупим перебором всіх елементів.
// Якщо дерево хоч раз відповіло інакше - десь зламане відсікання.

package bvh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/sync/errgroup"
)

var sortIDs = cmpopts.SortSlices(func(a, b int) bool { return a < b })

func ids(items []item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func bruteRange(items []item, target Aabb) []int {
	out := []int{}
	for _, it := range items {
		if it.aabb.Collides(target) {
			out = append(out, it.id)
		}
	}
	return out
}

func bruteClosest(items []item, p mgl32.Vec3) float64 {
	best := math.Inf(1)
	for _, it := range items {
		best = min(best, it.aabb.Dist2(p))
	}
	return best
}

func bruteRay(items []item, r Ray) (float32, bool) {
	best, found := float32(math.Inf(1)), false
	for _, it := range items {
		if t, ok := it.aabb.IntersectRay(r); ok && t < best {
			best, found = t, true
		}
	}
	return best, found
}

func randomVec(r *rand.Rand, lo, hi float32) mgl32.Vec3 {
	f := func() float32 { return lo + r.Float32()*(hi-lo) }
	return mgl32.Vec3{f(), f(), f()}
}

type buildCase struct {
	name string
	opts Options
}

var buildCases = []buildCase{
	{"median/leaf1", Options{LeafSize: 1}},
	{"median/leaf16", Options{}},
	{"sah/leaf4", Options{LeafSize: 4, Heuristic: SAH{}}},
	{"parallel", Options{LeafSize: 2, Parallelism: 4, ParallelThreshold: 64}},
}

func TestRange_BruteForce(t *testing.T) {
	for _, bc := range buildCases {
		t.Run(bc.name, func(t *testing.T) {
			r := rand.New(rand.NewSource(10))
			for _, n := range []int{0, 1, 5, 64, 500, 3000} {
				items := randomItems(r, n, 200, 4)
				tree := BuildWith(append([]item(nil), items...), Self[item], bc.opts)
				for q := 0; q < 50; q++ {
					target := Around(randomVec(r, -10, 210), randomVec(r, 0, 30))
					got := ids(tree.AppendRange(nil, target, Self[item]))
					want := bruteRange(items, target)
					if diff := cmp.Diff(want, got, sortIDs, cmpopts.EquateEmpty()); diff != "" {
						t.Fatalf("n=%d range %v mismatch (-want +got):\n%s", n, target, diff)
					}
				}
			}
		})
	}
}

func TestClosest_BruteForce(t *testing.T) {
	for _, bc := range buildCases {
		t.Run(bc.name, func(t *testing.T) {
			r := rand.New(rand.NewSource(11))
			for _, n := range []int{1, 2, 7, 64, 500, 3000} {
				items := randomItems(r, n, 200, 4)
				tree := BuildWith(append([]item(nil), items...), Self[item], bc.opts)
				for q := 0; q < 50; q++ {
					p := randomVec(r, -50, 250)
					got, d, ok := tree.Closest(p, Self[item])
					if !ok {
						t.Fatalf("n=%d: Closest(%v) found nothing", n, p)
					}
					want := bruteClosest(items, p)
					if d != want || got.aabb.Dist2(p) != want {
						t.Fatalf("n=%d: Closest(%v) = %d at %v, want distance %v", n, p, got.id, d, want)
					}
				}
			}
		})
	}
}

func TestFirstRayCollision_SubnormalDirection(t *testing.T) {
	boxes := make([]Aabb, 40)
	for i := range boxes {
		boxes[i] = unitBox(float32(i), 0, 0)
	}
	tree := BuildWith(boxes, Self[Aabb], Options{LeafSize: 2})

	// Початок лежить на площині x = Min.x, а x-компонента напрямку субнормальна
	ray := NewRay(mgl32.Vec3{tree.Bounds().Min[0], -5, 0.5}, mgl32.Vec3{math.SmallestNonzeroFloat32, 1, 0})
	box, dist, ok := tree.FirstRayCollision(ray, Self[Aabb])
	if !ok || dist != 5 || box != unitBox(0, 0, 0) {
		t.Errorf("FirstRayCollision = %v, %v, %v; want %v, 5, true", box, dist, ok, unitBox(0, 0, 0))
	}
}

func TestFirstRayCollision_BruteForce(t *testing.T) {
	for _, bc := range buildCases {
		t.Run(bc.name, func(t *testing.T) {
			r := rand.New(rand.NewSource(12))
			for _, n := range []int{1, 2, 7, 64, 500, 3000} {
				items := randomItems(r, n, 200, 4)
				tree := BuildWith(append([]item(nil), items...), Self[item], bc.opts)
				for q := 0; q < 50; q++ {
					dir := randomVec(r, -1, 1)
					if q%5 == 0 {
						dir[r.Intn(3)] = 0 // Промені, паралельні осі
					}
					ray := NewRay(randomVec(r, -20, 220), dir)
					got, d, ok := tree.FirstRayCollision(ray, Self[item])
					want, wantOK := bruteRay(items, ray)
					if ok != wantOK {
						t.Fatalf("n=%d: ray %v hit = %v, want %v", n, ray, ok, wantOK)
					}
					if !ok {
						continue
					}
					gotT, _ := got.aabb.IntersectRay(ray)
					if d != want || gotT != want {
						t.Fatalf("n=%d: ray %v hit %d at t=%v, want t=%v", n, ray, got.id, d, want)
					}
				}
			}
		})
	}
}

func TestQueries_FourBoxes(t *testing.T) {
	corners := []mgl32.Vec3{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {10, 10, 0}}
	for _, bc := range buildCases {
		t.Run(bc.name, func(t *testing.T) {
			items := make([]item, len(corners))
			for i, c := range corners {
				items[i] = item{id: i, aabb: Point(c)}
			}
			tree := BuildWith(items, Self[item], bc.opts)

			got, d, ok := tree.Closest(mgl32.Vec3{1, 1, 0}, Self[item])
			if !ok || got.id != 0 || d != 2.0 {
				t.Errorf("Closest = (%d, %v, %v), want (0, 2, true)", got.id, d, ok)
			}

			in := ids(tree.AppendRange(nil, NewAabb(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}), Self[item]))
			if diff := cmp.Diff([]int{0}, in); diff != "" {
				t.Errorf("Range mismatch (-want +got):\n%s", diff)
			}

			hit, tHit, ok := tree.FirstRayCollision(NewRay(mgl32.Vec3{-5, 10, 0}, mgl32.Vec3{1, 0, 0}), Self[item])
			if !ok || hit.id != 2 || tHit != 5 {
				t.Errorf("FirstRayCollision = (%d, %v, %v), want (2, 5, true)", hit.id, tHit, ok)
			}
		})
	}
}

func TestQueries_UnitBoxes(t *testing.T) {
	var boxes []Aabb
	for _, c := range []mgl32.Vec3{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {10, 10, 0}} {
		boxes = append(boxes, Around(c, mgl32.Vec3{0.5, 0.5, 0.5}))
	}
	tree := BuildWith(boxes, Self[Aabb], Options{LeafSize: 1})

	got, d, ok := tree.Closest(mgl32.Vec3{1, 1, 0}, Self[Aabb])
	if !ok || got.Mid() != (mgl32.Vec3{0, 0, 0}) || d != 0.5 {
		t.Errorf("Closest = (%v, %v, %v), want box at origin with 0.5", got, d, ok)
	}
	var in []Aabb
	for b := range tree.RangeSeq(NewAabb(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}), Self[Aabb]) {
		in = append(in, b)
	}
	if len(in) != 1 || in[0].Mid() != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("Range = %v, want box at origin", in)
	}
}

func TestQueries_Empty(t *testing.T) {
	for name, tree := range map[string]*Tree[item]{
		"built": Build[item](nil, Self[item]),
		"zero":  new(Tree[item]),
	} {
		t.Run(name, func(t *testing.T) {
			it := tree.Range(NewAabb(mgl32.Vec3{-1e9, -1e9, -1e9}, mgl32.Vec3{1e9, 1e9, 1e9}), Self[item])
			if e, ok := it.Next(); ok {
				t.Errorf("Range on empty tree returned %v", e)
			}
			if _, _, ok := tree.Closest(mgl32.Vec3{}, Self[item]); ok {
				t.Error("Closest on empty tree found something")
			}
			if _, _, ok := tree.FirstRayCollision(NewRay(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}), Self[item]); ok {
				t.Error("FirstRayCollision on empty tree found something")
			}
		})
	}
}

func TestQueries_Single(t *testing.T) {
	box := item{id: 42, aabb: unitBox(5, 5, 5)}
	tree := Build([]item{box}, Self[item])

	if got := ids(tree.AppendRange(nil, unitBox(0, 0, 0), Self[item])); len(got) != 0 {
		t.Errorf("Range far away = %v", got)
	}
	if got := ids(tree.AppendRange(nil, unitBox(5.5, 5.5, 5.5), Self[item])); !cmp.Equal(got, []int{42}) {
		t.Errorf("Range overlapping = %v", got)
	}
	if got, _, ok := tree.Closest(mgl32.Vec3{-100, 0, 0}, Self[item]); !ok || got.id != 42 {
		t.Errorf("Closest = %v, %v", got, ok)
	}
}

func TestClosestFunc_Filter(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	items := randomItems(r, 1000, 100, 1)
	tree := BuildWith(append([]item(nil), items...), Self[item], Options{LeafSize: 4})
	even := func(it item) bool { return it.id%2 == 0 }

	for q := 0; q < 100; q++ {
		p := randomVec(r, 0, 100)
		got, d, ok := tree.ClosestFunc(p, Self[item], even)
		if !ok || got.id%2 != 0 {
			t.Fatalf("ClosestFunc returned %v, %v", got, ok)
		}
		want := math.Inf(1)
		for _, it := range items {
			if even(it) {
				want = min(want, it.aabb.Dist2(p))
			}
		}
		if d != want {
			t.Fatalf("ClosestFunc distance %v, want %v", d, want)
		}

		ray := NewRay(p, randomVec(r, -1, 1))
		hit, tHit, ok := tree.FirstRayCollisionFunc(ray, Self[item], even)
		if ok && hit.id%2 != 0 {
			t.Fatalf("FirstRayCollisionFunc returned odd %d", hit.id)
		}
		wantT, wantOK := float32(math.Inf(1)), false
		for _, it := range items {
			if tt, hitOK := it.aabb.IntersectRay(ray); hitOK && even(it) && tt < wantT {
				wantT, wantOK = tt, true
			}
		}
		if ok != wantOK || (ok && tHit != wantT) {
			t.Fatalf("FirstRayCollisionFunc = (%v, %v), want (%v, %v)", tHit, ok, wantT, wantOK)
		}
	}
}

func TestRange_AccessorSeesCurrentGeometry(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	geometry := func(id int32) Aabb { return Point(positions[id]) }
	tree := Build([]int32{0, 1, 2, 3}, geometry)

	// Сутність 1 пішла геть після побудови: дерево не повинно її повертати
	positions[1] = mgl32.Vec3{0, 100, 0}
	var got []int32
	tree.Find(NewAabb(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{4, 1, 1}), geometry, func(id int32) bool {
		got = append(got, id)
		return true
	})
	if diff := cmp.Diff([]int32{0, 2, 3}, got, cmpopts.SortSlices(func(a, b int32) bool { return a < b })); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestRange_LeafRootSeesElementMovedIn(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}
	geometry := func(id int32) Aabb { return Point(positions[id]) }
	tree := Build([]int32{0, 1}, geometry)
	if !tree.Root().IsLeaf() {
		t.Fatal("two elements should fit in one leaf")
	}

	// Сутність 1 прийшла в зону запиту вже після побудови
	positions[1] = mgl32.Vec3{50, 50, 50}
	target := Around(mgl32.Vec3{50, 50, 50}, mgl32.Vec3{1, 1, 1})
	if diff := cmp.Diff([]int32{1}, tree.AppendRange(nil, target, geometry)); diff != "" {
		t.Errorf("AppendRange mismatch (-want +got):\n%s", diff)
	}
	if id, dist2, ok := tree.Closest(mgl32.Vec3{50, 50, 50}, geometry); !ok || id != 1 || dist2 != 0 {
		t.Errorf("Closest = %d, %v, %v; want 1, 0, true", id, dist2, ok)
	}
}

func TestFind_Stop(t *testing.T) {
	r := rand.New(rand.NewSource(14))
	tree := BuildWith(randomItems(r, 100, 10, 10), Self[item], Options{LeafSize: 1})
	calls := 0
	tree.Find(NewAabb(mgl32.Vec3{-100, -100, -100}, mgl32.Vec3{100, 100, 100}), Self[item], func(item) bool {
		calls++
		return calls < 3
	})
	if calls != 3 {
		t.Errorf("Find called f %d times after it returned false", calls)
	}
}

func TestQueries_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(15))
	tree := BuildWith(randomItems(r, 2000, 100, 2), Self[item], Options{LeafSize: 4})
	target := Around(mgl32.Vec3{50, 50, 50}, mgl32.Vec3{10, 10, 10})
	p := mgl32.Vec3{3, 97, 40}
	ray := NewRay(mgl32.Vec3{-10, 50, 50}, mgl32.Vec3{1, 0.1, 0})

	first := ids(tree.AppendRange(nil, target, Self[item]))
	c1, d1, _ := tree.Closest(p, Self[item])
	h1, t1, _ := tree.FirstRayCollision(ray, Self[item])
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, ids(tree.AppendRange(nil, target, Self[item]))); diff != "" {
			t.Fatalf("Range changed between calls:\n%s", diff)
		}
		if c, d, _ := tree.Closest(p, Self[item]); c != c1 || d != d1 {
			t.Fatalf("Closest changed between calls")
		}
		if h, tt, _ := tree.FirstRayCollision(ray, Self[item]); h != h1 || tt != t1 {
			t.Fatalf("FirstRayCollision changed between calls")
		}
	}
}

func TestQueries_Concurrent(t *testing.T) {
	r := rand.New(rand.NewSource(16))
	items := randomItems(r, 5000, 500, 3)
	tree := BuildWith(append([]item(nil), items...), Self[item], Options{LeafSize: 8, Parallelism: 4, ParallelThreshold: 512})

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		seed := int64(w)
		g.Go(func() error {
			r := rand.New(rand.NewSource(seed))
			for q := 0; q < 100; q++ {
				p := randomVec(r, 0, 500)
				if _, d, _ := tree.Closest(p, Self[item]); d != bruteClosest(items, p) {
					t.Errorf("concurrent Closest(%v) = %v", p, d)
				}
				target := Around(p, mgl32.Vec3{20, 20, 20})
				got := ids(tree.AppendRange(nil, target, Self[item]))
				if !cmp.Equal(bruteRange(items, target), got, sortIDs, cmpopts.EquateEmpty()) {
					t.Errorf("concurrent Range(%v) mismatch", target)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

func TestClosest_NaNPanics(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	tree := BuildWith(randomItems(r, 10, 10, 1), Self[item], Options{LeafSize: 1})
	defer func() {
		if recover() == nil {
			t.Error("Closest with NaN point did not panic")
		}
	}()
	nan := float32(math.NaN())
	tree.Closest(mgl32.Vec3{nan, 0, 0}, Self[item])
}

func BenchmarkRange(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	tree := Build(randomItems(r, 100000, 1e4, 1), Self[item])
	targets := make([]Aabb, 1024)
	for i := range targets {
		targets[i] = Around(randomVec(r, 0, 1e4), mgl32.Vec3{80, 80, 80})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it := tree.Range(targets[i%len(targets)], Self[item])
		for {
			if _, ok := it.Next(); !ok {
				break
			}
		}
	}
}

func BenchmarkClosest(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	tree := Build(randomItems(r, 100000, 1e4, 1), Self[item])
	points := make([]mgl32.Vec3, 1024)
	for i := range points {
		points[i] = randomVec(r, 0, 1e4)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Closest(points[i%len(points)], Self[item])
	}
}

func BenchmarkFirstRayCollision(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	tree := Build(randomItems(r, 100000, 1e4, 1), Self[item])
	rays := make([]Ray, 1024)
	for i := range rays {
		rays[i] = NewRay(randomVec(r, 0, 1e4), randomVec(r, -1, 1))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.FirstRayCollision(rays[i%len(rays)], Self[item])
	}
}
