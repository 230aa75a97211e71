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

// Йоу, чат! Client - це одне з'єднання з гравцем. Дві горутини:
// одна читає пакети і роздає їх обробникам, друга відправляє чергу.
// Впала будь-яка - гравець вийшов.

package client

import (
	"go.uber.org/zap"

	"FlowyRealm/world"
	"github.com/Tnze/go-mc/data/packetid"
	"github.com/Tnze/go-mc/net"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/Tnze/go-mc/net/queue"
	"github.com/Tnze/go-mc/server"
)

// sendQueueSize - скільки пакетів може чекати відправки
const sendQueueSize = 256

type Client struct {
	log    *zap.Logger
	conn   *net.Conn
	player *world.Player
	queue  server.PacketQueue
	// Масив, а не слайс: кожен клієнт має свою копію і AddHandler не чіпає інших
	handlers [packetid.ServerboundPacketIDGuard]PacketHandler
	// Inputs гравця, щоб обробники писали c.Inputs замість c.player.Inputs
	*world.Inputs
}

// PacketHandler обробляє один тип пакету. Помилка рве з'єднання
type PacketHandler func(p pk.Packet, c *Client) error

func New(log *zap.Logger, conn *net.Conn, player *world.Player) *Client {
	return &Client{
		log:      log,
		conn:     conn,
		player:   player,
		queue:    queue.NewChannelQueue[pk.Packet](sendQueueSize),
		handlers: defaultHandlers,
		Inputs:   &player.Inputs,
	}
}

// Start блокує, поки одна з горутин не завершиться
func (c *Client) Start() {
	stopped := make(chan struct{}, 2)
	done := func() { stopped <- struct{}{} }
	go c.startSend(done)
	go c.startReceive(done)
	<-stopped
}

func (c *Client) startSend(done func()) {
	defer done()
	for {
		p, ok := c.queue.Pull()
		if !ok {
			return
		}
		if err := c.conn.WritePacket(p); err != nil {
			c.log.Debug("Send packet fail", zap.Error(err))
			return
		}
		if packetid.ClientboundPacketID(p.ID) == packetid.ClientboundDisconnect {
			return
		}
	}
}

func (c *Client) startReceive(done func()) {
	defer done()
	var packet pk.Packet
	for {
		if err := c.conn.ReadPacket(&packet); err != nil {
			c.log.Debug("Receive packet fail", zap.Error(err))
			return
		}
		if packet.ID < 0 || packet.ID >= int32(len(c.handlers)) {
			c.log.Debug("Invalid packet id", zap.Int32("id", packet.ID), zap.Int("len", len(packet.Data)))
			return
		}
		handler := c.handlers[packet.ID]
		if handler == nil {
			continue
		}
		if err := handler(packet, c); err != nil {
			c.log.Error("Handle packet error", zap.Int32("id", packet.ID), zap.Error(err))
			return
		}
	}
}

// AddHandler підміняє обробник тільки для цього клієнта
func (c *Client) AddHandler(id packetid.ServerboundPacketID, handler PacketHandler) {
	c.handlers[id] = handler
}

func (c *Client) GetPlayer() *world.Player { return c.player }

var defaultHandlers = [packetid.ServerboundPacketIDGuard]PacketHandler{
	packetid.ServerboundAcceptTeleportation:  clientAcceptTeleportation,
	packetid.ServerboundClientInformation:    clientInformation,
	packetid.ServerboundMovePlayerPos:        clientMovePlayerPos,
	packetid.ServerboundMovePlayerPosRot:     clientMovePlayerPosRot,
	packetid.ServerboundMovePlayerRot:        clientMovePlayerRot,
	packetid.ServerboundMovePlayerStatusOnly: clientMovePlayerStatusOnly,
	packetid.ServerboundMoveVehicle:          clientMoveVehicle,
	packetid.ServerboundSwing:                clientSwing,
	packetid.ServerboundPlayerCommand:        clientPlayerCommand,
}
