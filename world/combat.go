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

// Йоу, чат! Удари в нас рахує сервер, а не клієнт.
// Клієнт тільки каже "я махнув рукою", а ми кидаємо промінь з його очей
// по дереву тіл цього тіку і дивимось, в кого він влучив першим.

package world

import (
	"go.uber.org/zap"

	"FlowyRealm/world/internal/bvh"
)

// subtickCombat обробляє удари: промінь з очей гравця по тілах інших гравців
func (w *World) subtickCombat(stats *TickStats) {
	reach := float32(w.config.Spatial.AttackReach)
	var viewers []playerView
	for _, p := range w.players {
		if !p.swinging {
			continue
		}
		p.swinging = false
		stats.Swings++

		// Махання рукою бачать всі, крім самого гравця - його клієнт малює це сам
		viewers = w.spatial.viewersOf(viewers[:0], p.Position.vec())
		for _, v := range viewers {
			if v.Player != p {
				v.ViewAnimate(p.EntityID, AnimationSwingMainArm)
			}
		}

		target, distance, ok := w.spatial.raycastPlayers(bvh.NewRay(p.eye(), p.look()), reach, p)
		if !ok {
			continue
		}
		stats.Hits++
		w.log.Debug("Player hit",
			zap.String("attacker", p.Name),
			zap.String("target", target.Name),
			zap.Float32("distance", distance),
		)
		viewers = w.spatial.viewersOf(viewers[:0], target.Position.vec())
		for _, v := range viewers {
			v.ViewAnimate(target.EntityID, AnimationCriticalEffect)
		}
	}
}
