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

// Йоу, чат! Кожен гравець тягне за собою коло завантажених чанків.
// Завантажуємо від центру назовні, щоб спершу з'являлась земля під ногами,
// а вивантажуємо все, що випало з кола після руху.

package world

import (
	"cmp"
	"math"
	"slices"

	"golang.org/x/time/rate"
)

// maxChunkRadius - більше клієнт не просить
const maxChunkRadius = 32

// loader - коло чанків навколо одного гравця
type loader struct {
	loaderSource
	loaded      map[[2]int32]struct{}
	loadQueue   [][2]int32
	unloadQueue [][2]int32
	limiter     *rate.Limiter // скільки чанків цей гравець може отримати за раз
}

// loaderSource - центр і радіус кола в чанках
type loaderSource interface {
	chunkPosition() [2]int32
	chunkRadius() int32
}

func newLoader(source loaderSource, limiter *rate.Limiter) *loader {
	l := &loader{
		loaderSource: source,
		loaded:       make(map[[2]int32]struct{}),
		limiter:      limiter,
	}
	l.calcLoadingQueue()
	return l
}

func (l *loader) radius() int32 {
	return min(max(l.chunkRadius(), 0), maxChunkRadius)
}

// calcLoadingQueue складає в loadQueue ще не завантажені чанки кола, ближчі першими
func (l *loader) calcLoadingQueue() {
	l.loadQueue = l.loadQueue[:0]
	center := l.chunkPosition()
	for _, o := range spiral[:spiralLen[l.radius()]] {
		pos := [2]int32{center[0] + o[0], center[1] + o[1]}
		if _, ok := l.loaded[pos]; !ok {
			l.loadQueue = append(l.loadQueue, pos)
		}
	}
}

// calcUnusedChunks складає в unloadQueue завантажені чанки поза колом
func (l *loader) calcUnusedChunks() {
	l.unloadQueue = l.unloadQueue[:0]
	center, r := l.chunkPosition(), l.radius()
	for pos := range l.loaded {
		if ring([2]int32{pos[0] - center[0], pos[1] - center[1]}) > r {
			l.unloadQueue = append(l.unloadQueue, pos)
		}
	}
}

// ring - номер кільця, в якому лежить зміщення: округлена вгору відстань
func ring(o [2]int32) int32 {
	return int32(math.Ceil(math.Sqrt(float64(o[0]*o[0] + o[1]*o[1]))))
}

var (
	// spiral - всі зміщення кола maxChunkRadius, відсортовані від центру
	spiral [][2]int32
	// spiralLen[r] - скільки перших елементів spiral лежать в колі радіуса r
	spiralLen [maxChunkRadius + 1]int
)

func init() {
	for x := int32(-maxChunkRadius); x <= maxChunkRadius; x++ {
		for z := int32(-maxChunkRadius); z <= maxChunkRadius; z++ {
			if o := [2]int32{x, z}; ring(o) <= maxChunkRadius {
				spiral = append(spiral, o)
			}
		}
	}
	slices.SortStableFunc(spiral, func(a, b [2]int32) int {
		return cmp.Compare(a[0]*a[0]+a[1]*a[1], b[0]*b[0]+b[1]*b[1])
	})
	for _, o := range spiral {
		spiralLen[ring(o)]++
	}
	for r := 1; r <= maxChunkRadius; r++ {
		spiralLen[r] += spiralLen[r-1]
	}
}
