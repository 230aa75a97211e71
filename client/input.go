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

// Йоу, чат! Тут все, що клієнт розповідає про себе: куди йде, куди дивиться
// і які в нього налаштування. Ми тільки складаємо це в Inputs,
// а світ на своєму тіку вирішує, чи вірити.

package client

import (
	"math"

	"FlowyRealm/world"
	pk "github.com/Tnze/go-mc/net/packet"
)

// setInputs змінює інпути гравця під замком
func (c *Client) setInputs(f func(in *world.Inputs)) {
	c.Inputs.Lock()
	defer c.Inputs.Unlock()
	f(c.Inputs)
}

// clientInformation - мова, дальність прогрузки, шари скіну і т.д.
// Приходить при вході і при кожній зміні налаштувань
func clientInformation(p pk.Packet, c *Client) error {
	var info world.ClientInfo
	if err := p.Scan(&info); err != nil {
		return err
	}
	c.setInputs(func(in *world.Inputs) { in.ClientInfo = info })
	return nil
}

func clientAcceptTeleportation(p pk.Packet, c *Client) error {
	var id pk.VarInt
	if err := p.Scan(&id); err != nil {
		return err
	}
	c.setInputs(func(in *world.Inputs) { in.TeleportID = int32(id) })
	return nil
}

// look переводить кути з пакету в Rotation. Pitch клієнт може прислати будь-який
func look(yaw, pitch pk.Float) world.Rotation {
	p := float32(pitch)
	if math.IsNaN(float64(p)) {
		p = 0
	}
	return world.Rotation{float32(yaw), min(max(p, -90), 90)}
}

func clientMovePlayerPos(p pk.Packet, c *Client) error {
	var x, y, z pk.Double
	var onGround pk.Boolean
	if err := p.Scan(&x, &y, &z, &onGround); err != nil {
		return err
	}
	c.setInputs(func(in *world.Inputs) {
		in.Position = world.Position{float64(x), float64(y), float64(z)}
		in.OnGround = world.OnGround(onGround)
	})
	return nil
}

func clientMovePlayerPosRot(p pk.Packet, c *Client) error {
	var x, y, z pk.Double
	var yaw, pitch pk.Float
	var onGround pk.Boolean
	if err := p.Scan(&x, &y, &z, &yaw, &pitch, &onGround); err != nil {
		return err
	}
	c.setInputs(func(in *world.Inputs) {
		in.Position = world.Position{float64(x), float64(y), float64(z)}
		in.Rotation = look(yaw, pitch)
		in.OnGround = world.OnGround(onGround)
	})
	return nil
}

func clientMovePlayerRot(p pk.Packet, c *Client) error {
	var yaw, pitch pk.Float
	var onGround pk.Boolean
	if err := p.Scan(&yaw, &pitch, &onGround); err != nil {
		return err
	}
	c.setInputs(func(in *world.Inputs) {
		in.Rotation = look(yaw, pitch)
		in.OnGround = world.OnGround(onGround)
	})
	return nil
}

func clientMovePlayerStatusOnly(p pk.Packet, c *Client) error {
	var onGround pk.Boolean
	if err := p.Scan(&onGround); err != nil {
		return err
	}
	c.setInputs(func(in *world.Inputs) { in.OnGround = world.OnGround(onGround) })
	return nil
}

// clientMoveVehicle - транспорту в нас немає
func clientMoveVehicle(pk.Packet, *Client) error { return nil }
