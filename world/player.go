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

// Йоу, чат! В гравця два стани. Inputs пише горутина з'єднання,
// а все інше належить тіку і читається тільки під tickLock.
// Тік раз на 50мс переносить Inputs в гравця, якщо вони виглядають чесно.

package world

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/Tnze/go-mc/yggdrasil/user"

	"FlowyRealm/world/entity"
	"FlowyRealm/world/internal/bvh"
)

// ReadFrom читає тіло пакету ServerboundClientInformation
func (i *ClientInfo) ReadFrom(r io.Reader) (n int64, err error) {
	return pk.Tuple{
		(*pk.String)(&i.Locale),                   // мова клієнта
		(*pk.Byte)(&i.ViewDistance),               // дальність прогрузки
		(*pk.VarInt)(&i.ChatMode),                 // налаштування чату
		(*pk.Boolean)(&i.ChatColors),              // кольоровий чат
		(*pk.UnsignedByte)(&i.DisplayedSkinParts), // видимі частини скіну
		(*pk.VarInt)(&i.MainHand),                 // основна рука
		(*pk.Boolean)(&i.EnableTextFiltering),     // фільтрація чату
		(*pk.Boolean)(&i.AllowServerListings),     // показ у списку серверів
	}.ReadFrom(r)
}

type Player struct {
	Entity
	Name       string
	UUID       uuid.UUID
	PubKey     *user.PublicKey
	Properties []user.Property // скін і плащ з профілю Mojang
	Latency    time.Duration

	lastChat time.Time // час останнього повідомлення в чаті

	ChunkPos     [3]int32
	ViewDistance int32 // в чанках, вже обрізана конфігом світу

	Gamemode       int32
	EntitiesInView map[int32]*Entity // кого цей клієнт вже малює
	teleport       *TeleportRequest  // поки не nil, рух клієнта ігнорується
	swinging       bool              // махнув рукою в цьому тіку
	sneaking       bool              // присів, тіло нижче
	skinParts      byte              // які шари скіну показувати
	poseChanged    bool              // глядачам треба надіслати нові метадані

	Inputs Inputs
}

func (p *Player) chunkPosition() [2]int32 { return [2]int32{p.ChunkPos[0], p.ChunkPos[2]} }

func (p *Player) chunkRadius() int32 { return p.ViewDistance }

// viewBox - куб зі стороною в дві дальності прогрузки. Все, що в ньому, гравцю видно
func (p *Player) viewBox() bvh.Aabb {
	r := float32(p.ViewDistance) * 16
	return bvh.Around(p.Position.vec(), mgl32.Vec3{r, r, r})
}

// Розміри тіла гравця в блоках
const (
	PlayerWidth          = 0.6
	PlayerHeight         = 1.8
	PlayerEyeHeight      = 1.62
	PlayerSneakHeight    = 1.5
	PlayerSneakEyeHeight = 1.27
)

// bodyBox повертає коробку тіла гравця. Position - це точка під ногами.
func (p *Player) bodyBox() bvh.Aabb {
	if p.sneaking {
		return p.Entity.boundingBox(PlayerWidth, PlayerSneakHeight)
	}
	return p.Entity.boundingBox(PlayerWidth, PlayerHeight)
}

// eye повертає позицію очей, звідки летить промінь удару
func (p *Player) eye() mgl32.Vec3 {
	height := float32(PlayerEyeHeight)
	if p.sneaking {
		height = PlayerSneakEyeHeight
	}
	return p.Position.vec().Add(mgl32.Vec3{0, height, 0})
}

// metadata - як цього гравця малювати іншим клієнтам
func (p *Player) metadata() entity.MetadataSet {
	return entity.PlayerState(p.sneaking, p.skinParts)
}

// look повертає одиничний вектор погляду з yaw та pitch (в градусах).
// Yaw 0 дивиться на +Z, 90 на -X; pitch 90 дивиться вниз.
func (p *Player) look() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(p.Rotation[0]))
	pitch := float64(mgl32.DegToRad(p.Rotation[1]))
	return mgl32.Vec3{
		float32(-math.Sin(yaw) * math.Cos(pitch)),
		float32(-math.Sin(pitch)),
		float32(math.Cos(yaw) * math.Cos(pitch)),
	}
}

// TeleportRequest чекає, поки клієнт підтвердить ID
type TeleportRequest struct {
	ID int32
	Position
	Rotation
}

// Inputs - що клієнт про себе каже. Тік читає їх через TryLock,
// тому повільний клієнт пропускає тік, а не гальмує його
type Inputs struct {
	sync.Mutex
	ClientInfo
	Position
	Rotation
	OnGround
	Latency    time.Duration
	TeleportID int32 // останній підтверджений телепорт
	Swing      bool  // скидається тіком
	Sneaking   bool
}

// ClientInfo - налаштування та можливості клієнта
// Отримуються при підключенні гравця
type ClientInfo struct {
	Locale              string // мова клієнта
	ViewDistance        int8   // радіус прогрузки
	ChatMode            int32  // режим чату
	ChatColors          bool   // підтримка кольорів
	DisplayedSkinParts  byte   // видимі частини скіну
	MainHand            int32  // основна рука (0-ліва, 1-права)
	EnableTextFiltering bool   // фільтрація чату
	AllowServerListings bool   // дозвіл показу в списку
}

// AcceptChatTimestamp запам'ятовує час повідомлення, якщо воно новіше за попереднє.
// false - клієнт переплутав порядок повідомлень
func (p *Player) AcceptChatTimestamp(t time.Time) bool {
	if !p.lastChat.Before(t) {
		return false
	}
	p.lastChat = t
	return true
}
