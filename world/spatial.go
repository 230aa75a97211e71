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

// Йоу, чат! Тут живе просторовий індекс світу.
// Кожен тік ми будуємо два BVH дерева з нуля:
// - views: хто кого бачить (елементи - ID гравців, коробка - зона видимості)
// - bodies: тіла гравців для пошуку найближчого і для променів ударів
// Після побудови дерева тільки читаються, тому запити можна ганяти паралельно.

package world

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"FlowyRealm/world/internal/bvh"
)

// SpatialConfig - налаштування просторового індексу
type SpatialConfig struct {
	LeafSize          int           // скільки елементів в листі дерева
	Heuristic         string        // "median" або "sah"
	BuildThreads      int           // 0 - всі ядра
	ParallelThreshold int           // з якого розміру піддерева будувати паралельно
	QueryWorkers      int           // скільки горутин ганяють запити в тіку
	AttackReach       float64       // дальність удару в блоках
	SlowTick          time.Duration // після скількох мс тік вважається повільним
}

// DefaultSpatialConfig повертає налаштування, з якими сервер працює без конфігу
func DefaultSpatialConfig() SpatialConfig {
	return SpatialConfig{
		LeafSize:          bvh.DefaultLeafSize,
		Heuristic:         "median",
		ParallelThreshold: bvh.DefaultParallelThreshold,
		QueryWorkers:      4,
		AttackReach:       3,
		SlowTick:          50 * time.Millisecond,
	}
}

// heuristic перетворює назву з конфігу в евристику
func (c SpatialConfig) heuristic() (bvh.Heuristic, error) {
	switch c.Heuristic {
	case "", "median":
		return bvh.Median{}, nil
	case "sah":
		return bvh.SAH{}, nil
	default:
		return nil, fmt.Errorf("unknown bvh heuristic %q", c.Heuristic)
	}
}

// Validate перевіряє налаштування до старту світу
func (c SpatialConfig) Validate() error {
	if _, err := c.heuristic(); err != nil {
		return err
	}
	if c.LeafSize < 0 || c.BuildThreads < 0 || c.ParallelThreshold < 0 || c.QueryWorkers < 0 {
		return fmt.Errorf("spatial config has negative values: %+v", c)
	}
	if c.AttackReach <= 0 || math.IsNaN(c.AttackReach) || math.IsInf(c.AttackReach, 0) {
		return fmt.Errorf("invalid attack reach %v", c.AttackReach)
	}
	return nil
}

// hitbox - тіло гравця в дереві тіл.
// Коробка копіюється при побудові, тому тіло - самодостатній елемент.
type hitbox struct {
	player *Player
	box    bvh.Aabb
}

func (h hitbox) Aabb() bvh.Aabb { return h.box }

// spatialIndex тримає дерева поточного тіку і арени, що переживають тіки
type spatialIndex struct {
	log  *zap.Logger
	opts bvh.Options

	viewArena *bvh.Arena
	bodyArena *bvh.Arena

	// byID - звідки дерево views бере актуальну геометрію
	byID map[int32]playerView

	viewIDs []int32
	bodies  []hitbox

	views    *bvh.Tree[int32]
	bodyTree *bvh.Tree[hitbox]
}

func newSpatialIndex(log *zap.Logger, config SpatialConfig) *spatialIndex {
	h, err := config.heuristic()
	if err != nil {
		log.Warn("Fallback to median heuristic", zap.Error(err))
		h = bvh.Median{}
	}
	s := &spatialIndex{
		log: log,
		opts: bvh.Options{
			LeafSize:          config.LeafSize,
			Heuristic:         h,
			Parallelism:       config.BuildThreads,
			ParallelThreshold: config.ParallelThreshold,
		},
		viewArena: new(bvh.Arena),
		bodyArena: new(bvh.Arena),
		byID:      make(map[int32]playerView),
	}
	// Дерева до першої побудови порожні
	s.views = new(bvh.Tree[int32])
	s.bodyTree = new(bvh.Tree[hitbox])
	return s
}

func (s *spatialIndex) add(v playerView) { s.byID[v.EntityID] = v }
func (s *spatialIndex) remove(id int32)  { delete(s.byID, id) }

// online - тіло могло лишитись в дереві від гравця, що вийшов посеред тіку
func (s *spatialIndex) online(p *Player) bool {
	v, ok := s.byID[p.EntityID]
	return ok && v.Player == p
}

// viewGeometry - геометрія дерева views. Шукає гравця в момент виклику,
// тому гравець, що вийшов після побудови, просто ніде не знаходиться.
func (s *spatialIndex) viewGeometry(id int32) bvh.Aabb {
	v, ok := s.byID[id]
	if !ok {
		return bvh.Null
	}
	return v.viewBox()
}

// rebuild будує обидва дерева з поточних позицій гравців
func (s *spatialIndex) rebuild() (views, bodies bvh.Stats, elapsed time.Duration) {
	start := time.Now()

	s.viewIDs = s.viewIDs[:0]
	s.bodies = s.bodies[:0]
	for id, v := range s.byID {
		s.viewIDs = append(s.viewIDs, id)
		s.bodies = append(s.bodies, hitbox{player: v.Player, box: v.bodyBox()})
	}

	opts := s.opts
	opts.Arena = s.viewArena
	s.views = bvh.BuildWith(s.viewIDs, s.viewGeometry, opts)
	opts.Arena = s.bodyArena
	s.bodyTree = bvh.BuildWith(s.bodies, bvh.Self[hitbox], opts)

	elapsed = time.Since(start)
	return s.views.Stats(), s.bodyTree.Stats(), elapsed
}

// viewersOf дописує в dst всіх гравців, чия зона видимості містить pos
func (s *spatialIndex) viewersOf(dst []playerView, pos mgl32.Vec3) []playerView {
	it := s.views.Range(bvh.Point(pos), s.viewGeometry)
	for {
		id, ok := it.Next()
		if !ok {
			return dst
		}
		dst = append(dst, s.byID[id])
	}
}

// playersWithin дописує в dst гравців, чиє тіло не далі radius від pos
func (s *spatialIndex) playersWithin(dst []playerView, pos mgl32.Vec3, radius float32) []playerView {
	r2 := float64(radius) * float64(radius)
	area := bvh.Around(pos, mgl32.Vec3{radius, radius, radius})
	for h := range s.bodyTree.RangeSeq(area, bvh.Self[hitbox]) {
		if s.online(h.player) && h.box.Dist2(pos) <= r2 {
			dst = append(dst, s.byID[h.player.EntityID])
		}
	}
	return dst
}

// closestPlayer шукає гравця, чиє тіло найближче до pos, крім exclude
func (s *spatialIndex) closestPlayer(pos mgl32.Vec3, exclude *Player) (*Player, float64, bool) {
	h, dist2, ok := s.bodyTree.ClosestFunc(pos, bvh.Self[hitbox], func(h hitbox) bool {
		return h.player != exclude && s.online(h.player)
	})
	if !ok {
		return nil, 0, false
	}
	return h.player, math.Sqrt(dist2), true
}

// raycastPlayers кидає промінь і повертає перше тіло не далі reach, крім exclude
func (s *spatialIndex) raycastPlayers(ray bvh.Ray, reach float32, exclude *Player) (*Player, float32, bool) {
	h, t, ok := s.bodyTree.FirstRayCollisionFunc(ray, bvh.Self[hitbox], func(h hitbox) bool {
		return h.player != exclude && s.online(h.player)
	})
	if !ok || t > reach {
		return nil, 0, false
	}
	return h.player, t, true
}
