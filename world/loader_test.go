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

package world

import (
	"testing"

	"golang.org/x/time/rate"
)

type fixedSource struct {
	pos    [2]int32
	radius int32
}

func (s *fixedSource) chunkPosition() [2]int32 { return s.pos }
func (s *fixedSource) chunkRadius() int32      { return s.radius }

func TestSpiral(t *testing.T) {
	if spiral[0] != [2]int32{0, 0} {
		t.Fatalf("spiral starts at %v", spiral[0])
	}
	if spiralLen[0] != 1 || spiralLen[1] != 5 {
		t.Errorf("spiralLen[0..1] = %d %d, want 1 5", spiralLen[0], spiralLen[1])
	}
	for i := 1; i < len(spiral); i++ {
		a, b := spiral[i-1], spiral[i]
		if a[0]*a[0]+a[1]*a[1] > b[0]*b[0]+b[1]*b[1] {
			t.Fatalf("spiral[%d]=%v is farther than spiral[%d]=%v", i-1, a, i, b)
		}
	}
	for r := int32(0); r <= maxChunkRadius; r++ {
		for i, o := range spiral {
			if inside := i < spiralLen[r]; inside != (ring(o) <= r) {
				t.Fatalf("radius %d: offset %v inside=%t", r, o, inside)
			}
		}
	}
}

func TestLoader_Queues(t *testing.T) {
	src := &fixedSource{pos: [2]int32{10, -3}, radius: 2}
	l := newLoader(src, rate.NewLimiter(rate.Inf, 1))
	if len(l.loadQueue) != spiralLen[2] {
		t.Fatalf("loadQueue has %d chunks, want %d", len(l.loadQueue), spiralLen[2])
	}
	if l.loadQueue[0] != src.pos {
		t.Errorf("first chunk to load is %v, want the center %v", l.loadQueue[0], src.pos)
	}
	for _, pos := range l.loadQueue {
		l.loaded[pos] = struct{}{}
	}

	l.calcLoadingQueue()
	l.calcUnusedChunks()
	if len(l.loadQueue) != 0 || len(l.unloadQueue) != 0 {
		t.Fatalf("standing still: load %v unload %v", l.loadQueue, l.unloadQueue)
	}

	// Крок на один чанк на схід
	src.pos[0]++
	l.calcLoadingQueue()
	l.calcUnusedChunks()
	if len(l.loadQueue) == 0 || len(l.unloadQueue) == 0 {
		t.Fatalf("after moving: load %d unload %d", len(l.loadQueue), len(l.unloadQueue))
	}
	for _, pos := range l.unloadQueue {
		if pos[0] >= src.pos[0] {
			t.Errorf("unloading %v ahead of the player", pos)
		}
	}
	for _, pos := range l.loadQueue {
		if _, ok := l.loaded[pos]; ok {
			t.Errorf("queued already loaded chunk %v", pos)
		}
	}
}

func TestLoader_RadiusClamp(t *testing.T) {
	l := newLoader(&fixedSource{radius: 1000}, rate.NewLimiter(rate.Inf, 1))
	if len(l.loadQueue) != len(spiral) {
		t.Errorf("loadQueue has %d chunks, want %d", len(l.loadQueue), len(spiral))
	}
	l = newLoader(&fixedSource{radius: -1}, rate.NewLimiter(rate.Inf, 1))
	if len(l.loadQueue) != 1 {
		t.Errorf("negative radius loads %d chunks, want 1", len(l.loadQueue))
	}
}
