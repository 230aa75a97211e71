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

// Йоу, чат! Тут живе найпростіший будівельний блок колізій - AABB.
// Коробка, вирівняна по осях, задається двома кутами: Min та Max.
// Все інше дерево (вузли, запити, побудова) тримається на цих операціях.

package bvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Aabb - коробка, вирівняна по осях координат.
// Інваріант: Min[i] <= Max[i] для кожної осі, крім порожньої коробки Null.
type Aabb struct {
	Min, Max mgl32.Vec3
}

var (
	inf = float32(math.Inf(1))

	// Null - порожня коробка. Ні з чим не перетинається, відстань до неї
	// нескінченна, і промінь її ніколи не зачепить.
	Null = Aabb{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
)

// NewAabb створює коробку з двох довільних кутів, впорядковуючи координати.
func NewAabb(a, b mgl32.Vec3) Aabb {
	return Aabb{
		Min: mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])},
		Max: mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])},
	}
}

// Around створює коробку з центром center і половинними розмірами half.
func Around(center, half mgl32.Vec3) Aabb {
	return Aabb{Min: center.Sub(half), Max: center.Add(half)}
}

// Point - вироджена коробка нульового об'єму в точці p.
func Point(p mgl32.Vec3) Aabb {
	return Aabb{Min: p, Max: p}
}

// Aabb робить саму коробку елементом дерева: bvh.Build(boxes, bvh.Self[bvh.Aabb]).
func (a Aabb) Aabb() Aabb { return a }

// IsNull повідомляє чи коробка порожня (хоч на одній осі Min > Max).
func (a Aabb) IsNull() bool {
	return a.Min[0] > a.Max[0] || a.Min[1] > a.Max[1] || a.Min[2] > a.Max[2]
}

// Union повертає найменшу коробку, що містить обидві.
// Null є нейтральним елементом: Null.Union(b) == b.
func (a Aabb) Union(b Aabb) Aabb {
	return Aabb{
		Min: mgl32.Vec3{min(a.Min[0], b.Min[0]), min(a.Min[1], b.Min[1]), min(a.Min[2], b.Min[2])},
		Max: mgl32.Vec3{max(a.Max[0], b.Max[0]), max(a.Max[1], b.Max[1]), max(a.Max[2], b.Max[2])},
	}
}

// Collides перевіряє перетин інтервалів на всіх трьох осях.
// Межі включні: коробки, що торкаються гранню, теж вважаються перетнутими.
func (a Aabb) Collides(b Aabb) bool {
	return a.Min[0] <= b.Max[0] && b.Min[0] <= a.Max[0] &&
		a.Min[1] <= b.Max[1] && b.Min[1] <= a.Max[1] &&
		a.Min[2] <= b.Max[2] && b.Min[2] <= a.Max[2]
}

// Contains перевіряє чи b повністю лежить всередині a.
func (a Aabb) Contains(b Aabb) bool {
	return a.Min[0] <= b.Min[0] && b.Max[0] <= a.Max[0] &&
		a.Min[1] <= b.Min[1] && b.Max[1] <= a.Max[1] &&
		a.Min[2] <= b.Min[2] && b.Max[2] <= a.Max[2]
}

// Mid повертає центр коробки. Для Null результат не визначений (NaN).
func (a Aabb) Mid() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Size повертає розміри коробки по осях.
func (a Aabb) Size() mgl32.Vec3 {
	return a.Max.Sub(a.Min)
}

// LongestAxis повертає номер осі (0, 1, 2) з найбільшою протяжністю.
func (a Aabb) LongestAxis() int {
	s := a.Size()
	axis := 0
	if s[1] > s[axis] {
		axis = 1
	}
	if s[2] > s[axis] {
		axis = 2
	}
	return axis
}

// SurfaceArea - площа поверхні, основа SAH евристики.
func (a Aabb) SurfaceArea() float32 {
	if a.IsNull() {
		return 0
	}
	s := a.Size()
	return 2 * (s[0]*s[1] + s[1]*s[2] + s[2]*s[0])
}

// Expand розширює коробку на d в усі боки.
func (a Aabb) Expand(d float32) Aabb {
	e := mgl32.Vec3{d, d, d}
	return Aabb{Min: a.Min.Sub(e), Max: a.Max.Add(e)}
}

// Dist2 повертає квадрат відстані від точки до коробки.
// Для точки всередині це 0, для Null - +Inf.
// Рахуємо в float64, щоб не втрачати точність на великих координатах світу.
func (a Aabb) Dist2(p mgl32.Vec3) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		d := max(a.Min[i]-p[i], 0, p[i]-a.Max[i])
		sum += float64(d) * float64(d)
	}
	return sum
}

// Ray - промінь з початком Origin і напрямком Direction.
// Direction не зобов'язаний бути одиничним: параметр t міряється в його довжинах.
type Ray struct {
	Origin, Direction mgl32.Vec3
}

// NewRay створює промінь.
func NewRay(origin, direction mgl32.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At повертає точку Origin + Direction*t.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectRay - slab метод.
// Повертає параметр входу променя в коробку (0 якщо початок вже всередині),
// або ok=false якщо промінь проходить повз чи коробка повністю позаду.
func (a Aabb) IntersectRay(r Ray) (t float32, ok bool) {
	if a.IsNull() {
		return 0, false
	}
	tMin, tMax := -inf, inf
	for i := 0; i < 3; i++ {
		o, inv := r.Origin[i], 1/r.Direction[i]
		if math.IsInf(float64(inv), 0) {
			// Промінь паралельний площинам цієї осі (або майже: для
			// субнормального напрямку 0*Inf дав би NaN)
			if o < a.Min[i] || o > a.Max[i] {
				return 0, false
			}
			continue
		}
		t1 := (a.Min[i] - o) * inv
		t2 := (a.Max[i] - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = max(tMin, t1)
		tMax = min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	if tMax < 0 {
		return 0, false
	}
	return max(tMin, 0), true
}
