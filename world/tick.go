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

// Йоу, чат! Тік триває 50мс. Порядок всередині важливий: спершу приймаємо
// інпути, потім будуємо дерева з позицій на початок тіку,
// і вже по цих деревах рахуємо удари та розсилаємо рухи.

package world

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tnze/go-mc/chat"

	"FlowyRealm/world/entity"
	"FlowyRealm/world/internal/bvh"
)

// TreeStats - форма одного дерева після побудови
type TreeStats struct {
	Nodes    int
	Leaves   int
	Depth    int
	Elements int
}

func treeStats(s bvh.Stats) TreeStats {
	return TreeStats{Nodes: s.Nodes, Leaves: s.Leaves, Depth: s.Depth, Elements: s.Elements}
}

// TickStats - що відбулось за один тік
type TickStats struct {
	Tick     uint
	Players  int
	Build    time.Duration // побудова обох дерев
	Duration time.Duration // весь тік
	Views    TreeStats
	Bodies   TreeStats
	Queries  int // запитів видимості
	Moves    int // сутностей, що рухались
	Swings   int
	Hits     int
}

// TickObserver отримує статистику кожного тіку.
// Викликається під час тіку, тому не повинен блокуватись.
type TickObserver interface {
	ObserveTick(stats TickStats)
}

func (w *World) tickLoop() {
	ticker := time.NewTicker(time.Second / 20)
	defer ticker.Stop()
	var n uint
	for {
		select {
		case <-ticker.C:
			w.tick(n)
			n++
		case <-w.stop:
			return
		}
	}
}

func (w *World) tick(n uint) {
	w.tickLock.Lock()
	defer w.tickLock.Unlock()
	start := time.Now()

	if n%8 == 0 {
		w.subtickChunkLoad()
	}
	w.subtickUpdatePlayers()

	stats := TickStats{Tick: n, Players: len(w.players)}
	w.subtickRebuildSpatial(&stats) // дерева з позицій на початку тіку
	w.subtickCombat(&stats)         // удари по тілах з цих же дерев
	w.subtickUpdateEntities(&stats) // розсилка рухів
	stats.Duration = time.Since(start)

	if budget := w.config.Spatial.SlowTick; budget > 0 && stats.Duration > budget {
		w.log.Warn("Slow tick",
			zap.Uint("tick", n),
			zap.Int("players", stats.Players),
			zap.Duration("duration", stats.Duration),
			zap.Duration("build", stats.Build),
		)
	}
	if w.observer != nil {
		w.observer.ObserveTick(stats)
	}
}

// subtickChunkLoad досилає гравцям чанки навколо них і забирає зайві.
// Раз на 8 тіків, бо диск повільний
func (w *World) subtickChunkLoad() {
	for c, p := range w.players {
		if pos := chunkOf(p.Position); pos != p.ChunkPos {
			p.ChunkPos = pos
			c.SendSetChunkCacheCenter([2]int32{pos[0], pos[2]})
		}
	}

LoadChunk:
	for viewer, loader := range w.loaders {
		loader.calcLoadingQueue()
		for _, pos := range loader.loadQueue {
			if !loader.limiter.Allow() {
				break
			}
			if _, ok := w.chunks[pos]; !ok && !w.loadChunk(pos) {
				break LoadChunk // провайдер більше не дасть
			}
			loader.loaded[pos] = struct{}{}
			lc := w.chunks[pos]
			lc.AddViewer(viewer)
			lc.Lock()
			viewer.ViewChunkLoad(pos, lc.Chunk)
			lc.Unlock()
		}
	}

	for viewer, loader := range w.loaders {
		loader.calcUnusedChunks()
		for _, pos := range loader.unloadQueue {
			delete(loader.loaded, pos)
			if !w.chunks[pos].RemoveViewer(viewer) {
				w.log.Panic("viewer is not found in the loaded chunk")
			}
			viewer.ViewChunkUnload(pos)
		}
	}

	// Мапу не чіпаємо під час обходу
	var orphans [][2]int32
	for pos, chunk := range w.chunks {
		if len(chunk.viewers) == 0 {
			orphans = append(orphans, pos)
		}
	}
	for _, pos := range orphans {
		w.unloadChunk(pos)
	}
}

// subtickUpdatePlayers оновлює стан всіх гравців
// Обробляє рух, телепортацію, удари та зону видимості
func (w *World) subtickUpdatePlayers() {
	for c, p := range w.players {
		if !p.Inputs.TryLock() {
			continue
		}
		inputs := &p.Inputs

		// Оновлюємо радіус видимості, але не більше ніж дозволяє сервер.
		// Дерево підхопить новий радіус при побудові
		if vd := int32(inputs.ViewDistance); vd > 0 {
			if limit := w.config.ViewDistance; limit > 0 {
				vd = min(vd, limit)
			}
			p.ViewDistance = vd
		}

		// Видаляємо сутності поза зоною видимості
		view := p.viewBox()
		for id, e := range p.EntitiesInView {
			if !view.Collides(bvh.Point(e.Position.vec())) {
				delete(p.EntitiesInView, id)
				c.ViewRemoveEntities([]int32{id})
			}
		}

		if inputs.Swing {
			p.swinging = true
			inputs.Swing = false
		}
		// Присідання і шари скіну міняють те, як гравця малюють інші
		if inputs.Sneaking != p.sneaking || inputs.DisplayedSkinParts != p.skinParts {
			p.sneaking = inputs.Sneaking
			p.skinParts = inputs.DisplayedSkinParts
			p.poseChanged = true
		}

		// Обробляємо телепортацію або рух
		if p.teleport != nil {
			if inputs.TeleportID == p.teleport.ID {
				p.pos0 = p.teleport.Position
				p.rot0 = p.teleport.Rotation
				p.teleport = nil
			}
		} else {
			// Перевіряємо швидкість руху
			delta := [3]float64{
				inputs.Position[0] - p.Position[0],
				inputs.Position[1] - p.Position[1],
				inputs.Position[2] - p.Position[2],
			}
			distance := math.Sqrt(delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2])
			if distance > 100 {
				// Завелика швидкість - можливий чіт
				teleportID := c.SendPlayerPosition(p.Position, p.Rotation)
				p.teleport = &TeleportRequest{
					ID:       teleportID,
					Position: p.Position,
					Rotation: p.Rotation,
				}
			} else if inputs.Position.IsValid() {
				p.pos0 = inputs.Position
				p.rot0 = inputs.Rotation
				p.OnGround = inputs.OnGround
			} else {
				w.log.Info("Player move invalid",
					zap.Float64("x", inputs.Position[0]),
					zap.Float64("y", inputs.Position[1]),
					zap.Float64("z", inputs.Position[2]),
				)
				c.SendDisconnect(chat.TranslateMsg("multiplayer.disconnect.invalid_player_movement"))
			}
		}
		p.Inputs.Unlock()
	}
}

// subtickRebuildSpatial будує дерева заново з поточних позицій
func (w *World) subtickRebuildSpatial(stats *TickStats) {
	views, bodies, elapsed := w.spatial.rebuild()
	stats.Build = elapsed
	stats.Views = treeStats(views)
	stats.Bodies = treeStats(bodies)
	if stats.Tick%1200 == 0 { // раз на хвилину, щоб не засмічувати лог
		w.log.Debug("Spatial index rebuilt",
			zap.Int("players", stats.Players),
			zap.Int("view nodes", views.Nodes),
			zap.Int("view depth", views.Depth),
			zap.Int("body nodes", bodies.Nodes),
			zap.Int("body depth", bodies.Depth),
			zap.Duration("elapsed", elapsed),
		)
	}
}

// entityMove - сутність і всі, хто бачить її нову позицію
type entityMove struct {
	player  *Player
	viewers []playerView
}

// subtickUpdateEntities оновлює стан всіх сутностей
// Наразі обробляє тільки гравців, бо інших сутностей ще немає.
// Спершу паралельно шукаємо глядачів кожного гравця (дерево тільки читається),
// потім по черзі розсилаємо пакети і фіксуємо нові позиції.
func (w *World) subtickUpdateEntities(stats *TickStats) {
	moves := make([]entityMove, 0, len(w.players))
	for _, p := range w.players {
		moves = append(moves, entityMove{player: p})
	}
	if len(moves) == 0 {
		return
	}

	workers := max(1, w.config.Spatial.QueryWorkers)
	batch := (len(moves) + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < len(moves); lo += batch {
		part := moves[lo:min(lo+batch, len(moves))]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("viewers query: %v", r)
				}
			}()
			for i := range part {
				part[i].viewers = w.spatial.viewersOf(nil, part[i].player.pos0.vec())
			}
			return nil
		})
	}
	// Гравці, до яких невдала пачка не дійшла, цей тік нікому не розсилаються
	if err := g.Wait(); err != nil {
		w.log.Error("Spatial query failed", zap.Uint("tick", stats.Tick), zap.Error(err))
	}
	stats.Queries += len(moves)

	for _, m := range moves {
		e := m.player
		send := w.prepareMove(e)
		if send != nil {
			stats.Moves++
		}

		// Оновлюємо позицію до розсилки: нові глядачі отримають вже нову
		e.Position = e.pos0
		e.Rotation = e.rot0

		var meta entity.MetadataSet
		if e.poseChanged {
			meta = e.metadata()
			e.poseChanged = false
		}
		for _, v := range m.viewers {
			if v.Player == e {
				continue // не надсилаємо гравцю його власні рухи
			}
			if _, ok := v.EntitiesInView[e.EntityID]; !ok {
				v.ViewAddPlayer(e)
				v.ViewEntityData(e.EntityID, e.metadata())
				v.EntitiesInView[e.EntityID] = &e.Entity
				continue
			}
			if send != nil {
				send(v.Client)
			}
			if meta != nil {
				v.ViewEntityData(e.EntityID, meta)
			}
		}
	}
}

// prepareMove вибирає пакет руху для сутності, або nil якщо вона стоїть
func (w *World) prepareMove(e *Player) func(v EntityViewer) {
	var delta [3]int16
	var rot [2]int8
	moved := e.Position != e.pos0
	rotated := e.Rotation != e.rot0
	if rotated || moved {
		rot = [2]int8{
			int8(e.rot0[0] * 256 / 360),
			int8(e.rot0[1] * 256 / 360),
		}
	}
	if moved {
		for i := range delta {
			d := e.pos0[i] - e.Position[i]
			if math.Abs(d) >= 8 {
				// Відносний рух влазить тільки в 8 блоків
				pos, onGround := e.pos0, bool(e.OnGround)
				return func(v EntityViewer) {
					v.ViewTeleportEntity(e.EntityID, pos, rot, onGround)
				}
			}
			delta[i] = int16(d * 32 * 128)
		}
	}

	onGround := bool(e.OnGround)
	switch {
	case moved && rotated:
		return func(v EntityViewer) {
			v.ViewMoveEntityPosAndRot(e.EntityID, delta, rot, onGround)
			v.ViewRotateHead(e.EntityID, rot[0])
		}
	case moved:
		return func(v EntityViewer) {
			v.ViewMoveEntityPos(e.EntityID, delta, onGround)
		}
	case rotated:
		return func(v EntityViewer) {
			v.ViewMoveEntityRot(e.EntityID, rot, onGround)
			v.ViewRotateHead(e.EntityID, rot[0])
		}
	default:
		return nil
	}
}
