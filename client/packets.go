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

// Йоу, чат! Тут пакети, які сервер шле одному гравцю: логін, таб-список,
// чат і чанки. Пакети про інших сутностей лежать в entities.go.

package client

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"FlowyRealm/world"
	"github.com/Tnze/go-mc/chat"
	"github.com/Tnze/go-mc/chat/sign"
	"github.com/Tnze/go-mc/data/packetid"
	"github.com/Tnze/go-mc/level"
	pk "github.com/Tnze/go-mc/net/packet"
)

// SendPacket кодує поля і ставить пакет в чергу на відправку.
// Помилка кодування означає баг в сервері, тому паніка
func (c *Client) SendPacket(id packetid.ClientboundPacketID, fields ...pk.FieldEncoder) {
	var buf bytes.Buffer
	for _, f := range fields {
		if _, err := f.WriteTo(&buf); err != nil {
			c.log.Panic("Marshal packet error", zap.Int32("packet", int32(id)), zap.Error(err))
		}
	}
	c.queue.Push(pk.Packet{ID: int32(id), Data: buf.Bytes()})
}

func (c *Client) SendKeepAlive(id int64) {
	c.SendPacket(packetid.ClientboundKeepAlive, pk.Long(id))
}

// SendDisconnect - після цього пакету з'єднання закривається
func (c *Client) SendDisconnect(reason chat.Message) {
	c.log.Debug("Disconnect player", zap.String("reason", reason.ClearString()))
	c.SendPacket(packetid.ClientboundDisconnect, reason)
}

// SendLogin - перший пакет гри: вимір, реєстри і дальність прогрузки
func (c *Client) SendLogin(w *world.World, p *world.Player) {
	seed := w.HashedSeed()
	c.SendPacket(
		packetid.ClientboundLogin,
		pk.Int(p.EntityID),
		pk.Boolean(false), // хардкор
		pk.Byte(p.Gamemode),
		pk.Byte(-1), // попереднього режиму немає
		pk.Array([]pk.Identifier{pk.Identifier(w.Name())}),
		pk.NBT(world.NetworkCodec),
		pk.Identifier("minecraft:overworld"),
		pk.Identifier(w.Name()),
		pk.Long(binary.BigEndian.Uint64(seed[:])),
		pk.VarInt(0), // клієнт це поле ігнорує
		pk.VarInt(p.ViewDistance),
		pk.VarInt(p.ViewDistance), // симуляція на тій же відстані
		pk.Boolean(false),         // скорочений F3
		pk.Boolean(false),         // екран відродження
		pk.Boolean(false),         // debug світ
		pk.Boolean(false),         // плаский світ
		pk.Boolean(false),         // місця смерті немає
	)
}

func (c *Client) SendServerData(motd *chat.Message, favIcon string, enforceSecureProfile bool) {
	c.SendPacket(
		packetid.ClientboundServerData,
		motd,
		pk.Option[pk.String, *pk.String]{Has: favIcon != "", Val: pk.String(favIcon)},
		pk.Boolean(enforceSecureProfile),
	)
}

// Дії пакету PlayerInfoUpdate, порядок як в протоколі
const (
	PlayerInfoAddPlayer = iota
	PlayerInfoInitializeChat
	PlayerInfoUpdateGameMode
	PlayerInfoUpdateListed
	PlayerInfoUpdateLatency
	PlayerInfoUpdateDisplayName
	PlayerInfoEnumGuard
)

func NewPlayerInfoAction(actions ...int) pk.FixedBitSet {
	set := pk.NewFixedBitSet(PlayerInfoEnumGuard)
	for _, a := range actions {
		set.Set(a, true)
	}
	return set
}

// SendPlayerInfoUpdate оновлює таб-список. Для кожного гравця пишуться
// тільки ті поля, чиї дії ввімкнені в actions
func (c *Client) SendPlayerInfoUpdate(actions pk.FixedBitSet, players []*world.Player) {
	fields := []pk.FieldEncoder{actions, pk.VarInt(len(players))}
	for _, p := range players {
		fields = append(fields, pk.UUID(p.UUID))
		if actions.Get(PlayerInfoAddPlayer) {
			fields = append(fields, pk.String(p.Name), pk.Array(p.Properties))
		}
		if actions.Get(PlayerInfoInitializeChat) {
			fields = append(fields, pk.Boolean(false)) // сесій чату не тримаємо
		}
		if actions.Get(PlayerInfoUpdateGameMode) {
			fields = append(fields, pk.VarInt(p.Gamemode))
		}
		if actions.Get(PlayerInfoUpdateListed) {
			fields = append(fields, pk.Boolean(true))
		}
		if actions.Get(PlayerInfoUpdateLatency) {
			fields = append(fields, pk.VarInt(p.Latency.Milliseconds()))
		}
		if actions.Get(PlayerInfoUpdateDisplayName) {
			fields = append(fields, pk.Boolean(false)) // ім'я як в профілі
		}
	}
	c.SendPacket(packetid.ClientboundPlayerInfoUpdate, fields...)
}

func (c *Client) SendPlayerInfoRemove(players []*world.Player) {
	ids := make([]pk.UUID, len(players))
	for i, p := range players {
		ids[i] = pk.UUID(p.UUID)
	}
	c.SendPacket(packetid.ClientboundPlayerInfoRemove, pk.Array(ids))
}

func (c *Client) SendLevelChunkWithLight(pos level.ChunkPos, chunk *level.Chunk) {
	c.SendPacket(packetid.ClientboundLevelChunkWithLight, pos, chunk)
}

func (c *Client) SendForgetLevelChunk(pos level.ChunkPos) {
	c.SendPacket(packetid.ClientboundForgetLevelChunk, pos)
}

func (c *Client) SendSetChunkCacheCenter(chunkPos [2]int32) {
	c.SendPacket(packetid.ClientboundSetChunkCacheCenter, pk.VarInt(chunkPos[0]), pk.VarInt(chunkPos[1]))
}

// SendSetDefaultSpawnPosition - точка, куди вказує компас і де гравець відроджується
func (c *Client) SendSetDefaultSpawnPosition(xyz [3]int32, angle float32) {
	c.SendPacket(
		packetid.ClientboundSetDefaultSpawnPosition,
		pk.Position{X: int(xyz[0]), Y: int(xyz[1]), Z: int(xyz[2])},
		pk.Float(angle),
	)
}

// SendSystemChat - повідомлення від сервера. overlay малює його над хотбаром
func (c *Client) SendSystemChat(msg chat.Message, overlay bool) {
	c.SendPacket(packetid.ClientboundSystemChat, msg, pk.Boolean(overlay))
}

func (c *Client) SendPlayerChat(
	sender uuid.UUID,
	index int32,
	signature pk.Option[sign.Signature, *sign.Signature],
	body *sign.PackedMessageBody,
	unsignedContent *chat.Message,
	filter *sign.FilterMask,
	chatType *chat.Type,
) {
	c.SendPacket(
		packetid.ClientboundPlayerChat,
		pk.UUID(sender),
		pk.VarInt(index),
		signature,
		body,
		pk.OptionEncoder[*chat.Message]{Has: unsignedContent != nil, Val: unsignedContent},
		filter,
		chatType,
	)
}

func (c *Client) ViewChunkLoad(pos level.ChunkPos, chunk *level.Chunk) {
	c.SendLevelChunkWithLight(pos, chunk)
}
func (c *Client) ViewChunkUnload(pos level.ChunkPos) { c.SendForgetLevelChunk(pos) }
