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

// Йоу, чат! Пакети про чужі сутності: поява, рух, анімації і метадані.
// Малі кроки шлемо дельтою в 1/4096 блока, великі - телепортом.

package client

import (
	"go.uber.org/atomic"

	"FlowyRealm/world"
	"FlowyRealm/world/entity"
	"github.com/Tnze/go-mc/data/packetid"
	pk "github.com/Tnze/go-mc/net/packet"
)

func (c *Client) SendAddPlayer(p *world.Player) {
	c.SendPacket(
		packetid.ClientboundAddPlayer,
		pk.VarInt(p.EntityID),
		pk.UUID(p.UUID),
		pk.Double(p.Position[0]), pk.Double(p.Position[1]), pk.Double(p.Position[2]),
		pk.Angle(p.Rotation[0]), pk.Angle(p.Rotation[1]),
	)
}

func (c *Client) SendMoveEntitiesPos(eid int32, delta [3]int16, onGround bool) {
	c.SendPacket(
		packetid.ClientboundMoveEntityPos,
		pk.VarInt(eid),
		pk.Short(delta[0]), pk.Short(delta[1]), pk.Short(delta[2]),
		pk.Boolean(onGround),
	)
}

func (c *Client) SendMoveEntitiesPosAndRot(eid int32, delta [3]int16, rot [2]int8, onGround bool) {
	c.SendPacket(
		packetid.ClientboundMoveEntityPosRot,
		pk.VarInt(eid),
		pk.Short(delta[0]), pk.Short(delta[1]), pk.Short(delta[2]),
		pk.Angle(rot[0]), pk.Angle(rot[1]),
		pk.Boolean(onGround),
	)
}

func (c *Client) SendMoveEntitiesRot(eid int32, rot [2]int8, onGround bool) {
	c.SendPacket(
		packetid.ClientboundMoveEntityRot,
		pk.VarInt(eid),
		pk.Angle(rot[0]), pk.Angle(rot[1]),
		pk.Boolean(onGround),
	)
}

// SendRotateHead - голова крутиться окремо від тіла, тільки по yaw
func (c *Client) SendRotateHead(eid int32, yaw int8) {
	c.SendPacket(packetid.ClientboundRotateHead, pk.VarInt(eid), pk.Angle(yaw))
}

func (c *Client) SendTeleportEntity(eid int32, pos [3]float64, rot [2]int8, onGround bool) {
	c.SendPacket(
		packetid.ClientboundTeleportEntity,
		pk.VarInt(eid),
		pk.Double(pos[0]), pk.Double(pos[1]), pk.Double(pos[2]),
		pk.Angle(rot[0]), pk.Angle(rot[1]),
		pk.Boolean(onGround),
	)
}

// teleportCounter спільний для всіх клієнтів
var teleportCounter atomic.Int32

// SendPlayerPosition ставить самого гравця на місце. Поки клієнт не підтвердить
// teleportID, світ ігнорує його рух
func (c *Client) SendPlayerPosition(pos [3]float64, rot [2]float32) (teleportID int32) {
	teleportID = teleportCounter.Inc()
	c.SendPacket(
		packetid.ClientboundPlayerPosition,
		pk.Double(pos[0]), pk.Double(pos[1]), pk.Double(pos[2]),
		pk.Float(rot[0]), pk.Float(rot[1]),
		pk.Byte(0), // всі координати абсолютні
		pk.VarInt(teleportID),
	)
	return
}

func (c *Client) SendRemoveEntities(entityIDs []int32) {
	ids := make([]pk.VarInt, len(entityIDs))
	for i, id := range entityIDs {
		ids[i] = pk.VarInt(id)
	}
	c.SendPacket(packetid.ClientboundRemoveEntities, pk.Array(ids))
}

func (c *Client) SendAnimate(eid int32, animation world.Animation) {
	c.SendPacket(packetid.ClientboundAnimate, pk.VarInt(eid), pk.UnsignedByte(animation))
}

// SendSetEntityData оновлює метадані сутності (поза, шари скіну)
func (c *Client) SendSetEntityData(eid int32, meta entity.MetadataSet) {
	c.SendPacket(packetid.ClientboundSetEntityData, pk.VarInt(eid), meta)
}

func (c *Client) ViewAddPlayer(p *world.Player)        { c.SendAddPlayer(p) }
func (c *Client) ViewRemoveEntities(entityIDs []int32) { c.SendRemoveEntities(entityIDs) }
func (c *Client) ViewRotateHead(id int32, yaw int8)    { c.SendRotateHead(id, yaw) }
func (c *Client) ViewMoveEntityPos(id int32, delta [3]int16, onGround bool) {
	c.SendMoveEntitiesPos(id, delta, onGround)
}

func (c *Client) ViewMoveEntityPosAndRot(id int32, delta [3]int16, rot [2]int8, onGround bool) {
	c.SendMoveEntitiesPosAndRot(id, delta, rot, onGround)
}

func (c *Client) ViewMoveEntityRot(id int32, rot [2]int8, onGround bool) {
	c.SendMoveEntitiesRot(id, rot, onGround)
}

func (c *Client) ViewTeleportEntity(id int32, pos [3]float64, rot [2]int8, onGround bool) {
	c.SendTeleportEntity(id, pos, rot, onGround)
}

func (c *Client) ViewAnimate(id int32, animation world.Animation) { c.SendAnimate(id, animation) }

func (c *Client) ViewEntityData(id int32, meta entity.MetadataSet) { c.SendSetEntityData(id, meta) }
