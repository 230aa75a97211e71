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

// Йоу, чат! Звідси світ бере чанки і гравців з диска.
// Чанки лежать в .mca регіонах (32x32 чанки на файл), гравці - в
// playerdata/<uuid>.dat, стиснутому gzip NBT. Ми тільки читаємо:
// сервер нічого не генерує і не зберігає.

package world

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/save"
	"github.com/Tnze/go-mc/save/region"
	"github.com/Tnze/go-mc/yggdrasil/user"
)

var (
	// ErrReachRateLimit - світ зараз вантажить забагато чанків, спробуйте в наступному тіку
	ErrReachRateLimit = errors.New("reach rate limit")

	errChunkNotExist = errors.New("chunk not exist")
)

// ChunkProvider читає чанки з директорії регіонів
type ChunkProvider struct {
	dir     string
	limiter *rate.Limiter
}

// NewProvider створює провайдер над директорією region світу.
// limiter спільний для всього світу і рахує кожен прочитаний чанк.
func NewProvider(dir string, limiter *rate.Limiter) ChunkProvider {
	return ChunkProvider{dir: dir, limiter: limiter}
}

// GetChunk читає чанк pos. Якщо його немає на диску - errChunkNotExist,
// і світ згенерує порожній.
func (p *ChunkProvider) GetChunk(pos [2]int32) (c *level.Chunk, errRet error) {
	if !p.limiter.Allow() {
		return nil, ErrReachRateLimit
	}
	r, err := p.openRegion(region.At(int(pos[0]), int(pos[1])))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil && errRet == nil {
			errRet = fmt.Errorf("close region: %w", err)
		}
	}()

	x, z := region.In(int(pos[0]), int(pos[1]))
	if !r.ExistSector(x, z) {
		return nil, errChunkNotExist
	}
	data, err := r.ReadSector(x, z)
	if err != nil {
		return nil, fmt.Errorf("read sector %d,%d: %w", x, z, err)
	}

	var chunk save.Chunk
	if err := chunk.Load(data); err != nil {
		return nil, fmt.Errorf("parse chunk %v: %w", pos, err)
	}
	if c, err = level.ChunkFromSave(&chunk); err != nil {
		return nil, fmt.Errorf("load chunk %v: %w", pos, err)
	}
	return c, nil
}

// openRegion відкриває існуючий регіон. Читання ніколи не створює файлів,
// тому відсутній регіон - це просто відсутній чанк.
func (p *ChunkProvider) openRegion(rx, rz int) (*region.Region, error) {
	r, err := region.Open(filepath.Join(p.dir, fmt.Sprintf("r.%d.%d.mca", rx, rz)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errChunkNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("open region %d,%d: %w", rx, rz, err)
	}
	return r, nil
}

// PutChunk викликається при вивантаженні чанка. Світ тільки для читання,
// тому зберігати нічого
func (p *ChunkProvider) PutChunk(pos [2]int32, c *level.Chunk) error {
	return nil
}

// PlayerProvider читає збережених гравців
type PlayerProvider struct {
	dir string
}

func NewPlayerProvider(dir string) PlayerProvider {
	return PlayerProvider{dir: dir}
}

// GetPlayer читає гравця id. Якщо гравець ще не грав на сервері,
// помилка задовольняє errors.Is(err, fs.ErrNotExist).
func (p *PlayerProvider) GetPlayer(name string, id uuid.UUID, pubKey *user.PublicKey, properties []user.Property) (player *Player, errRet error) {
	f, err := os.Open(filepath.Join(p.dir, id.String()+".dat"))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil && errRet == nil {
			errRet = fmt.Errorf("close player data: %w", err)
		}
	}()

	r, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("player data %s: %w", id, err)
	}
	data, err := save.ReadPlayerData(r)
	if err != nil {
		return nil, fmt.Errorf("read player data %s: %w", id, err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("player data %s: %w", id, err)
	}

	player = NewPlayer(name, id, pubKey, properties, data.Pos, data.Rotation)
	player.Gamemode = data.PlayerGameType
	return player, nil
}

// NewPlayer створює гравця, що стоїть в pos і дивиться в rot.
// Рух і розсилка рахують від цієї точки, тому гравець не "стрибає" на першому тіку.
func NewPlayer(name string, id uuid.UUID, pubKey *user.PublicKey, properties []user.Property, pos Position, rot Rotation) *Player {
	p := &Player{
		Entity: Entity{
			EntityID: NewEntityID(),
			Position: pos,
			Rotation: rot,
			pos0:     pos,
			rot0:     rot,
		},
		Name:           name,
		UUID:           id,
		PubKey:         pubKey,
		Properties:     properties,
		ChunkPos:       chunkOf(pos),
		EntitiesInView: make(map[int32]*Entity),
		ViewDistance:   10,
	}
	p.Inputs.Position = pos
	p.Inputs.Rotation = rot
	return p
}

// chunkOf повертає координати чанка, в якому стоїть pos
func chunkOf(pos Position) [3]int32 {
	return [3]int32{
		int32(math.Floor(pos[0])) >> 4,
		int32(math.Floor(pos[1])) >> 4,
		int32(math.Floor(pos[2])) >> 4,
	}
}
