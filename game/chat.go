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

// Йоу, чат! Чат у нас локальний: повідомлення чують тільки ті,
// хто стоїть поруч, а хто хоче докричатися до всіх - починає з "!".
// Сусідів шукаємо тим самим деревом тіл, що й удари.

package game

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"FlowyRealm/client"
	"FlowyRealm/world"
	"github.com/Tnze/go-mc/chat"
	"github.com/Tnze/go-mc/chat/sign"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/Tnze/go-mc/registry"
)

// MsgExpiresTime - старші повідомлення мовчки відкидаємо
const MsgExpiresTime = time.Minute * 5

// shoutPrefix - повідомлення з цим префіксом чують усі
const shoutPrefix = "!"

type localChat struct {
	log     *zap.Logger
	players *roster
	world   *world.World
	radius  float32 // 0 - всі чують всіх
	types   *registry.Registry[registry.ChatType]
}

// broadcastSystemChat - системне повідомлення всім на сервері
func (g *localChat) broadcastSystemChat(msg chat.Message, overlay bool) {
	g.log.Info(msg.String(), zap.Bool("overlay", overlay))
	g.players.each(func(c *client.Client) { c.SendSystemChat(msg, overlay) })
}

// audience повертає тих, хто почує повідомлення гравця
func (g *localChat) audience(p *world.Player, shout bool) []*client.Client {
	var out []*client.Client
	if shout || g.radius <= 0 {
		g.players.each(func(c *client.Client) { out = append(out, c) })
		return out
	}
	for _, c := range g.world.Listeners(p, g.radius) {
		if cc, ok := c.(*client.Client); ok {
			out = append(out, cc)
		}
	}
	return out
}

// Handle обробляє ServerboundChat
func (g *localChat) Handle(p pk.Packet, c *client.Client) error {
	var (
		message   pk.String
		timestamp pk.Long
		salt      pk.Long
		signature pk.Option[sign.Signature, *sign.Signature]
		lastSeen  sign.HistoryUpdate
	)
	if err := p.Scan(&message, &timestamp, &salt, &signature, &lastSeen); err != nil {
		return err
	}

	player := c.GetPlayer()
	sent := time.UnixMilli(int64(timestamp))
	logger := g.log.With(zap.String("sender", player.Name), zap.Time("timestamp", sent))

	if !validMessage(string(message)) {
		c.SendDisconnect(chat.TranslateMsg("multiplayer.disconnect.illegal_characters"))
		return nil
	}
	if !player.AcceptChatTimestamp(sent) {
		c.SendDisconnect(chat.TranslateMsg("multiplayer.disconnect.out_of_order_chat"))
		return nil
	}
	if time.Since(sent) > MsgExpiresTime {
		logger.Warn("Player send expired message", zap.String("msg", string(message)))
		return nil
	}

	text, shout := strings.CutPrefix(string(message), shoutPrefix)
	if shout {
		// Текст змінився, підпис клієнта до нього вже не підходить
		signature.Has = false
	}

	id, decoration := g.types.Find("minecraft:chat")
	chatType := chat.Type{ID: id, SenderName: chat.Text(player.Name)}
	decorated := chatType.Decorate(chat.Text(text), &decoration.Chat)

	listeners := g.audience(player, shout)
	logger.Info(decorated.String(), zap.Bool("shout", shout), zap.Int("listeners", len(listeners)))
	body := &sign.PackedMessageBody{
		PlainMsg:  text,
		Timestamp: sent,
		Salt:      int64(salt),
		LastSeen:  []sign.PackedSignature{},
	}
	for _, l := range listeners {
		l.SendPlayerChat(player.UUID, 0, signature, body, nil, &sign.FilterMask{Type: 0}, &chatType)
	}
	return nil
}

// validMessage - без символу форматування § і керуючих символів
func validMessage(msg string) bool {
	return !strings.ContainsFunc(msg, func(r rune) bool {
		return r == '§' || r < ' ' || r == '\x7F'
	})
}
