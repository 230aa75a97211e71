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

// Йоу, чат! Сутність - все, що має ID і місце у світі.
// Поки що сутності в нас тільки гравці, але рух і коробки рахуються тут.

package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/atomic"

	"FlowyRealm/world/internal/bvh"
)

// entityCounter спільний для всіх світів: ID не повторюються на сервері
var entityCounter atomic.Int32

func NewEntityID() int32 {
	return entityCounter.Inc()
}

// Entity - Position і Rotation це те, що вже бачать глядачі.
// pos0 і rot0 - куди сутність рухається в цьому тіку
type Entity struct {
	EntityID int32
	Position
	Rotation
	OnGround
	pos0 Position
	rot0 Rotation
}

// Position - x, y, z ніг сутності
type Position [3]float64

// Rotation - yaw і pitch в градусах
type Rotation [2]float32

type OnGround bool

// vec переводить позицію в float32 вектор для просторового індексу
func (p Position) vec() mgl32.Vec3 {
	return mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])}
}

// boundingBox повертає коробку сутності заданих розмірів.
// Сутність стоїть на Position: коробка росте вгору від ніг.
func (e *Entity) boundingBox(width, height float32) bvh.Aabb {
	pos := e.Position.vec()
	half := width / 2
	return bvh.Aabb{
		Min: mgl32.Vec3{pos[0] - half, pos[1], pos[2] - half},
		Max: mgl32.Vec3{pos[0] + half, pos[1] + height, pos[2] + half},
	}
}

// IsValid - false для NaN і нескінченностей, які шле зламаний або чітерський клієнт
func (p *Position) IsValid() bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
