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

// Йоу, чат! Удар в майнкрафті починається з махання рукою.
// Клієнт шле ServerboundSwing, а сервер на наступному тіку
// сам кидає промінь з очей гравця і вирішує в кого він влучив.

package client

import (
	"FlowyRealm/world"
	pk "github.com/Tnze/go-mc/net/packet"
)

// Руки з пакету ServerboundSwing
const (
	handMain pk.VarInt = iota
	handOff
)

// clientSwing обробляє махання рукою
// Б'є тільки основна рука, друга просто махає
func clientSwing(p pk.Packet, c *Client) error {
	var hand pk.VarInt
	if err := p.Scan(&hand); err != nil {
		return err
	}
	if hand != handMain {
		return nil
	}
	c.setInputs(func(in *world.Inputs) { in.Swing = true })
	return nil
}

// Дії з пакету ServerboundPlayerCommand, які нас цікавлять
const (
	actionStartSneaking pk.VarInt = 0
	actionStopSneaking  pk.VarInt = 1
)

// clientPlayerCommand - присідання змінює висоту тіла, тобто і в кого влучить удар
func clientPlayerCommand(p pk.Packet, c *Client) error {
	var eid, action pk.VarInt
	if err := p.Scan(&eid, &action); err != nil {
		return err
	}
	switch action {
	case actionStartSneaking, actionStopSneaking:
		c.setInputs(func(in *world.Inputs) { in.Sneaking = action == actionStartSneaking })
	}
	return nil
}
