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

// Йоу, чат! Команди - це повідомлення зі слешем на початку.
// Клієнт сам відрізає "/" і шле окремий пакет ServerboundChatCommand,
// тому в звичайний чат вони не потрапляють.

package game

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"FlowyRealm/client"
	"FlowyRealm/world"
	"github.com/Tnze/go-mc/chat"
	pk "github.com/Tnze/go-mc/net/packet"
)

// handleCommand розбирає команду і виконує її.
// Підписи аргументів нас не цікавлять, читаємо тільки сам текст
func (g *Game) handleCommand(p pk.Packet, c *client.Client) error {
	var command pk.String
	if err := p.Scan(&command); err != nil {
		return err
	}

	name, _, _ := strings.Cut(string(command), " ")
	g.log.Debug("Command", zap.String("player", c.GetPlayer().Name), zap.String("command", string(command)))

	switch name {
	case "nearest":
		c.SendSystemChat(nearestMessage(g.overworld, c.GetPlayer()), false)
	default:
		c.SendSystemChat(chat.TranslateMsg("command.unknown.command").SetColor(chat.Red), false)
	}
	return nil
}

// nearestMessage шукає найближчого гравця в дереві тіл і формує відповідь
func nearestMessage(w *world.World, p *world.Player) chat.Message {
	nearest, dist, ok := w.NearestPlayer(p)
	if !ok {
		return chat.Text("Nobody is around").SetColor(chat.Gray)
	}
	return chat.Text(fmt.Sprintf("Nearest player: %s, %.1f blocks away", nearest.Name, dist)).SetColor(chat.Green)
}
