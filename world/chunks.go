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

// Йоу, чат! Чанки живуть, поки їх хтось бачить. Першого глядача чанк
// отримує разом з завантаженням, а коли йде останній - вивантажується.
// Чанків, яких немає на диску, ми не генеруємо по-справжньому:
// просто суцільний камінь, щоб гравці не падали в порожнечу.

package world

import (
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/level/block"
)

// stoneSections - висота оверворлду 1.18+: 24 секції по 16 блоків
const stoneSections = 24

// LoadedChunk - чанк в пам'яті разом з тими, хто його бачить
type LoadedChunk struct {
	sync.Mutex
	viewers []ChunkViewer
	*level.Chunk
}

// AddViewer панікує на повторного глядача: це означає, що лоадер
// загубив, які чанки вже відправив
func (lc *LoadedChunk) AddViewer(v ChunkViewer) {
	lc.Lock()
	defer lc.Unlock()
	if slices.Contains(lc.viewers, v) {
		panic("append an exist viewer")
	}
	lc.viewers = append(lc.viewers, v)
}

// RemoveViewer повертає false, якщо такого глядача не було. Порядок глядачів не зберігається
func (lc *LoadedChunk) RemoveViewer(v ChunkViewer) bool {
	lc.Lock()
	defer lc.Unlock()
	i := slices.Index(lc.viewers, v)
	if i < 0 {
		return false
	}
	last := len(lc.viewers) - 1
	lc.viewers[i] = lc.viewers[last]
	lc.viewers = lc.viewers[:last]
	return true
}

// stoneChunk - заглушка замість генератора світу
func stoneChunk() *level.Chunk {
	c := level.EmptyChunk(stoneSections)
	stone := block.ToStateID[block.Stone{}]
	for s := range c.Sections {
		for i := 0; i < 16*16*16; i++ {
			c.Sections[s].SetBlock(i, stone)
		}
	}
	c.Status = level.StatusFull
	return c
}

// loadChunk кладе чанк в w.chunks. false - чанк поки недоступний:
// вичерпано ліміт провайдера або файл регіону битий
func (w *World) loadChunk(pos [2]int32) bool {
	logger := w.log.With(zap.Int32("x", pos[0]), zap.Int32("z", pos[1]))
	c, err := w.chunkProvider.GetChunk(pos)
	switch {
	case err == nil:
		logger.Debug("Loaded chunk", zap.Int("sections", len(c.Sections)), zap.String("status", string(c.Status)))
	case errors.Is(err, errChunkNotExist):
		logger.Debug("Generate chunk")
		c = stoneChunk()
	case errors.Is(err, ErrReachRateLimit):
		return false
	default:
		logger.Error("GetChunk error", zap.Error(err))
		return false
	}
	w.chunks[pos] = &LoadedChunk{Chunk: c}
	return true
}

// unloadChunk прощається з чанком у всіх глядачів і віддає його провайдеру
func (w *World) unloadChunk(pos [2]int32) {
	logger := w.log.With(zap.Int32("x", pos[0]), zap.Int32("z", pos[1]))
	c, ok := w.chunks[pos]
	if !ok {
		logger.Panic("Unloading an non-exist chunk")
	}
	for _, viewer := range c.viewers {
		viewer.ViewChunkUnload(pos)
	}
	if err := w.chunkProvider.PutChunk(pos, c.Chunk); err != nil {
		logger.Error("Store chunk data error", zap.Error(err))
	}
	delete(w.chunks, pos)
	logger.Debug("Unloaded chunk")
}
