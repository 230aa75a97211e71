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
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func unitBox(x, y, z float32) Aabb {
	return NewAabb(mgl32.Vec3{x, y, z}, mgl32.Vec3{x + 1, y + 1, z + 1})
}

func TestAabb_Union(t *testing.T) {
	a := unitBox(0, 0, 0)
	b := unitBox(5, -3, 2)

	if got := Null.Union(a); got != a {
		t.Errorf("Null.Union(a) = %v, want %v", got, a)
	}
	if got := a.Union(Null); got != a {
		t.Errorf("a.Union(Null) = %v, want %v", got, a)
	}
	want := Aabb{Min: mgl32.Vec3{0, -3, 0}, Max: mgl32.Vec3{6, 1, 3}}
	if got := a.Union(b); got != want {
		t.Errorf("a.Union(b) = %v, want %v", got, want)
	}
	if !Null.IsNull() || a.IsNull() {
		t.Error("IsNull is wrong")
	}
}

func TestAabb_Collides(t *testing.T) {
	a := unitBox(0, 0, 0)
	for _, tc := range []struct {
		name string
		b    Aabb
		want bool
	}{
		{"same", a, true},
		{"inside", Around(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0.1, 0.1, 0.1}), true},
		{"touching face", unitBox(1, 0, 0), true},
		{"touching corner", unitBox(1, 1, 1), true},
		{"apart on x", unitBox(1.01, 0, 0), false},
		{"apart on z", unitBox(0, 0, -1.5), false},
		{"null", Null, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Collides(tc.b); got != tc.want {
				t.Errorf("Collides = %v, want %v", got, tc.want)
			}
			if got := tc.b.Collides(a); got != tc.want {
				t.Errorf("Collides is not symmetric")
			}
		})
	}
}

func TestAabb_Dist2(t *testing.T) {
	a := unitBox(0, 0, 0)
	for _, tc := range []struct {
		p    mgl32.Vec3
		want float64
	}{
		{mgl32.Vec3{0.5, 0.5, 0.5}, 0},
		{mgl32.Vec3{1, 1, 1}, 0},
		{mgl32.Vec3{3, 0.5, 0.5}, 4},
		{mgl32.Vec3{-1, -1, 0.5}, 2},
		{mgl32.Vec3{2, 2, 2}, 3},
	} {
		if got := a.Dist2(tc.p); got != tc.want {
			t.Errorf("Dist2(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
	if got := Null.Dist2(mgl32.Vec3{}); !math.IsInf(got, 1) {
		t.Errorf("Null.Dist2 = %v, want +Inf", got)
	}
}

func TestAabb_IntersectRay(t *testing.T) {
	a := unitBox(2, 0, 0)
	for _, tc := range []struct {
		name  string
		ray   Ray
		wantT float32
		want  bool
	}{
		{"hit front", NewRay(mgl32.Vec3{0, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}), 2, true},
		{"origin inside", NewRay(mgl32.Vec3{2.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}), 0, true},
		{"behind", NewRay(mgl32.Vec3{5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}), 0, false},
		{"miss", NewRay(mgl32.Vec3{0, 2, 0.5}, mgl32.Vec3{1, 0, 0}), 0, false},
		{"parallel outside slab", NewRay(mgl32.Vec3{2.5, 3, 0.5}, mgl32.Vec3{0, 0, 1}), 0, false},
		{"scaled direction", NewRay(mgl32.Vec3{0, 0.5, 0.5}, mgl32.Vec3{2, 0, 0}), 1, true},
		{"diagonal", NewRay(mgl32.Vec3{0, -2, 0.5}, mgl32.Vec3{1, 1, 0}), 2, true},
		{"subnormal direction on slab plane", NewRay(mgl32.Vec3{2, -2, 0.5}, mgl32.Vec3{math.SmallestNonzeroFloat32, 1, 0}), 2, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			gotT, ok := a.IntersectRay(tc.ray)
			if ok != tc.want || (ok && gotT != tc.wantT) {
				t.Errorf("IntersectRay = (%v, %v), want (%v, %v)", gotT, ok, tc.wantT, tc.want)
			}
		})
	}
	if _, ok := Null.IntersectRay(NewRay(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})); ok {
		t.Error("ray hit Null box")
	}
}

func TestAabb_LongestAxis(t *testing.T) {
	a := NewAabb(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 5, 2})
	if got := a.LongestAxis(); got != 1 {
		t.Errorf("LongestAxis = %d, want 1", got)
	}
	if got := a.SurfaceArea(); got != 2*(5+10+2) {
		t.Errorf("SurfaceArea = %v", got)
	}
	if got := Null.SurfaceArea(); got != 0 {
		t.Errorf("Null.SurfaceArea = %v, want 0", got)
	}
}

func TestNode_Encoding(t *testing.T) {
	for _, start := range []int{0, 1, 17, 1 << 20} {
		n := leafNode(Null, start, 3)
		if !n.IsLeaf() {
			t.Fatalf("leaf at %d is not a leaf", start)
		}
		s, c, ok := n.Leaf()
		if !ok || s != start || c != 3 {
			t.Errorf("Leaf() = (%d, %d, %v), want (%d, 3, true)", s, c, ok, start)
		}
		if _, _, ok := n.Children(); ok {
			t.Error("leaf has children")
		}
	}
	n := internalNode(Null, 0, 7)
	if l, r, ok := n.Children(); !ok || l != 0 || r != 7 {
		t.Errorf("Children() = (%d, %d, %v)", l, r, ok)
	}
	if n.IsLeaf() {
		t.Error("internal node is a leaf")
	}
}
