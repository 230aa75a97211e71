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

// Йоу, чат! World - це один вимір. Всі його мапи належать горутині тіків,
// а ззовні в них лізуть тільки під tickLock.

package world

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type World struct {
	log           *zap.Logger
	config        Config
	chunkProvider ChunkProvider

	chunks   map[[2]int32]*LoadedChunk
	loaders  map[ChunkViewer]*loader
	tickLock sync.Mutex

	// spatial - BVH дерева, що перебудовуються кожен тік.
	// Використовуються для розсилки рухів, ударів і пошуку найближчого гравця
	spatial  *spatialIndex
	players  map[Client]*Player
	observer TickObserver // nil - статистику ніхто не читає
	stop     chan struct{}
}

// Config - налаштування світу
type Config struct {
	ViewDistance  int32 // стеля для дальності, яку просить клієнт
	SpawnAngle    float32
	SpawnPosition [3]int32
	Spatial       SpatialConfig
}

// playerView - гравець разом з тим, кому відправляти що він бачить
type playerView struct {
	Client
	*Player
}

// New створює новий світ з вказаними параметрами і запускає цикл тіків
func New(logger *zap.Logger, provider ChunkProvider, config Config) (w *World) {
	w = newWorld(logger, provider, config)
	go w.tickLoop()
	return
}

func newWorld(logger *zap.Logger, provider ChunkProvider, config Config) *World {
	if config.Spatial == (SpatialConfig{}) {
		config.Spatial = DefaultSpatialConfig()
	}
	return &World{
		log:           logger,
		config:        config,
		chunks:        make(map[[2]int32]*LoadedChunk),
		loaders:       make(map[ChunkViewer]*loader),
		players:       make(map[Client]*Player),
		chunkProvider: provider,
		spatial:       newSpatialIndex(logger.Named("bvh"), config.Spatial),
		stop:          make(chan struct{}),
	}
}

// Close зупиняє цикл тіків
func (w *World) Close() { close(w.stop) }

// SetTickObserver встановлює отримувача статистики тіків. nil вимикає.
func (w *World) SetTickObserver(o TickObserver) {
	w.tickLock.Lock()
	defer w.tickLock.Unlock()
	w.observer = o
}

// Name - поки що вимір у нас один
func (w *World) Name() string { return "minecraft:overworld" }

func (w *World) SpawnPositionAndAngle() ([3]int32, float32) {
	return w.config.SpawnPosition, w.config.SpawnAngle
}

// HashedSeed - клієнт використовує його тільки для шуму біомів, нулі підходять
func (w *World) HashedSeed() [8]byte { return [8]byte{} }

// AddPlayer додає гравця до світу
// Створює для нього завантажувач чанків. В дерева гравець потрапить з наступним тіком
func (w *World) AddPlayer(c Client, p *Player, limiter *rate.Limiter) {
	w.tickLock.Lock()
	defer w.tickLock.Unlock()
	w.loaders[c] = newLoader(p, limiter)
	w.players[c] = p
	w.spatial.add(playerView{c, p})
}

// RemovePlayer видаляє гравця зі світу
// Вивантажує його чанки та прибирає його з усіх, хто його бачив
func (w *World) RemovePlayer(c Client, p *Player) {
	w.tickLock.Lock()
	defer w.tickLock.Unlock()
	w.log.Debug("Remove Player",
		zap.Int("loader count", len(w.loaders[c].loaded)),
		zap.Int("world count", len(w.chunks)),
	)
	// Видаляємо гравця з усіх завантажених чанків
	for pos := range w.loaders[c].loaded {
		if !w.chunks[pos].RemoveViewer(c) {
			w.log.Panic("viewer is not found in the loaded chunk")
		}
	}
	delete(w.loaders, c)
	delete(w.players, c)
	w.spatial.remove(p.EntityID)
	// Зона видимості могла поїхати від гравця після того, як він туди потрапив,
	// тому питаємо кожного, а не дерево
	for viewer, other := range w.players {
		if _, ok := other.EntitiesInView[p.EntityID]; ok {
			viewer.ViewRemoveEntities([]int32{p.EntityID})
			delete(other.EntitiesInView, p.EntityID)
		}
	}
}

// NearestPlayer повертає найближчого до p іншого гравця і відстань до його тіла.
// Дивиться в дерево тіл поточного тіку.
func (w *World) NearestPlayer(p *Player) (nearest *Player, distance float64, ok bool) {
	w.tickLock.Lock()
	defer w.tickLock.Unlock()
	return w.spatial.closestPlayer(p.Position.vec(), p)
}

// Listeners повертає клієнтів усіх гравців, чиє тіло не далі radius від p, разом з самим p.
// Гравець, що ще не потрапив у дерево, чує тільки себе.
func (w *World) Listeners(p *Player, radius float32) []Client {
	w.tickLock.Lock()
	defer w.tickLock.Unlock()
	views := w.spatial.playersWithin(nil, p.Position.vec(), radius)
	clients := make([]Client, 0, len(views)+1)
	self := false
	for _, v := range views {
		self = self || v.Player == p
		clients = append(clients, v.Client)
	}
	if !self {
		for c, other := range w.players {
			if other == p {
				clients = append(clients, c)
			}
		}
	}
	return clients
}
