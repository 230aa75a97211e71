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

// Йоу, чат! Таб-список і keepalive живуть в пакеті server з go-mc,
// а тут ми тільки розсилаємо гравцям, хто прийшов, хто пішов і який в кого пінг.

package game

import (
	"time"

	"FlowyRealm/client"
	"FlowyRealm/world"
	"github.com/Tnze/go-mc/data/packetid"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/Tnze/go-mc/server"
)

// roster - всі гравці сервера, незалежно від світу
type roster struct {
	keepAlive *server.KeepAlive
	pingList  *server.PlayerList
}

// each викликає f для кожного клієнта в таб-списку
func (r *roster) each(f func(c *client.Client)) {
	r.pingList.Range(func(c server.PlayerListClient, _ server.PlayerSample) {
		f(c.(*client.Client))
	})
}

// join показує новачка всім, а йому - всіх, разом з ним самим
func (r *roster) join(c *client.Client, p *world.Player) {
	r.pingList.ClientJoin(c, server.PlayerSample{Name: p.Name, ID: p.UUID})
	r.keepAlive.ClientJoin(c)
	c.AddHandler(packetid.ServerboundKeepAlive, r.handleKeepAlive)

	action := client.NewPlayerInfoAction(client.PlayerInfoAddPlayer, client.PlayerInfoUpdateListed)
	everyone := make([]*world.Player, 0, r.pingList.Len())
	r.each(func(other *client.Client) {
		everyone = append(everyone, other.GetPlayer())
		if other != c {
			other.SendPlayerInfoUpdate(action, []*world.Player{p})
		}
	})
	c.SendPlayerInfoUpdate(action, everyone)
}

// leave прибирає гравця з табу у всіх, хто лишився
func (r *roster) leave(c *client.Client) {
	r.pingList.ClientLeft(c)
	r.keepAlive.ClientLeft(c)
	gone := []*world.Player{c.GetPlayer()}
	r.each(func(other *client.Client) { other.SendPlayerInfoRemove(gone) })
}

// updateLatency викликається keepalive'ом, коли гравець відповів на пінг
func (r *roster) updateLatency(c *client.Client, latency time.Duration) {
	p := c.GetPlayer()
	p.Inputs.Lock()
	p.Inputs.Latency = latency
	p.Inputs.Unlock()

	action := client.NewPlayerInfoAction(client.PlayerInfoUpdateLatency)
	r.each(func(other *client.Client) { other.SendPlayerInfoUpdate(action, []*world.Player{p}) })
}

func (r *roster) handleKeepAlive(p pk.Packet, c *client.Client) error {
	var id pk.Long
	if err := p.Scan(&id); err != nil {
		return err
	}
	r.keepAlive.ClientTick(c)
	return nil
}
