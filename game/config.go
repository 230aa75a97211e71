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

// Йоу, чат! Конфіг читається з config.toml поверх DefaultConfig,
// а Validate перевіряє все за раз і повертає всі помилки разом.

package game

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"FlowyRealm/world"
)

type Config struct {
	MaxPlayers                  int    `toml:"max-players"`
	ViewDistance                int32  `toml:"view-distance"` // в чанках
	ListenAddress               string `toml:"listen-address"`
	MessageOfTheDay             string `toml:"motd"`
	NetworkCompressionThreshold int    `toml:"network-compression-threshold"`
	OnlineMode                  bool   `toml:"online-mode"`
	LevelName                   string `toml:"level-name"` // папка світу
	EnforceSecureProfile        bool   `toml:"enforce-secure-profile"`

	// Скільки чанків читається з диску на весь сервер
	ChunkLoadingLimiter Limiter `toml:"chunk-loading-limiter"`
	// Скільки чанків отримує один гравець
	PlayerChunkLoadingLimiter Limiter `toml:"player-chunk-loading-limiter"`

	NetworkCodec   string  `toml:"network-codec"`   // NBT з реєстрами для пакету логіну
	MonitorAddress string  `toml:"monitor-address"` // порожня - без моніторингу
	LogFile        string  `toml:"log-file"`        // порожній - тільки консоль
	ChatRadius     float64 `toml:"chat-radius"`     // в блоках, 0 - весь сервер

	Spatial SpatialConfig `toml:"spatial"`
}

// SpatialConfig - таблиця [spatial] з конфігу
type SpatialConfig struct {
	// Скільки гравців максимум лежить в одному листі BVH дерева
	LeafSize int `toml:"leaf-size"`
	// Як різати дерево: "median" (швидко) або "sah" (якісніше)
	Heuristic string `toml:"heuristic"`
	// Скільки потоків будують дерево. 0 - всі ядра
	BuildThreads int `toml:"build-threads"`
	// З якого розміру піддерева будувати паралельно
	ParallelThreshold int `toml:"parallel-threshold"`
	// Скільки горутин шукають глядачів рухів
	QueryWorkers int `toml:"query-workers"`
	// Дальність удару в блоках
	AttackReach float64 `toml:"attack-reach"`
	// Тік довший за це пишеться в лог як повільний
	SlowTick duration `toml:"slow-tick"`
}

// World перетворює таблицю конфігу в налаштування світу
func (s SpatialConfig) World() world.SpatialConfig {
	return world.SpatialConfig{
		LeafSize:          s.LeafSize,
		Heuristic:         s.Heuristic,
		BuildThreads:      s.BuildThreads,
		ParallelThreshold: s.ParallelThreshold,
		QueryWorkers:      s.QueryWorkers,
		AttackReach:       s.AttackReach,
		SlowTick:          s.SlowTick.Duration,
	}
}

// DefaultConfig - налаштування, поверх яких читається config.toml.
// Все, чого немає у файлі, лишається як тут
func DefaultConfig() Config {
	spatial := world.DefaultSpatialConfig()
	return Config{
		MaxPlayers:                  20,
		ViewDistance:                10,
		ListenAddress:               "0.0.0.0:25565",
		MessageOfTheDay:             "A Minecraft Server",
		NetworkCompressionThreshold: 256,
		OnlineMode:                  true,
		LevelName:                   "world",
		ChunkLoadingLimiter:         Limiter{Every: duration{50 * time.Millisecond}, N: 100},
		PlayerChunkLoadingLimiter:   Limiter{Every: duration{100 * time.Millisecond}, N: 5},
		NetworkCodec:                "registry_codec.nbt",
		Spatial: SpatialConfig{
			LeafSize:          spatial.LeafSize,
			Heuristic:         spatial.Heuristic,
			BuildThreads:      spatial.BuildThreads,
			ParallelThreshold: spatial.ParallelThreshold,
			QueryWorkers:      spatial.QueryWorkers,
			AttackReach:       spatial.AttackReach,
			SlowTick:          duration{spatial.SlowTick},
		},
	}
}

// Validate перевіряє весь конфіг і повертає всі знайдені проблеми разом
func (c *Config) Validate() (err error) {
	if c.MaxPlayers < 0 {
		err = multierr.Append(err, fmt.Errorf("max-players must not be negative, got %d", c.MaxPlayers))
	}
	if c.ViewDistance < 2 || c.ViewDistance > 32 {
		err = multierr.Append(err, fmt.Errorf("view-distance must be in [2, 32], got %d", c.ViewDistance))
	}
	if c.ListenAddress == "" {
		err = multierr.Append(err, errors.New("listen-address is empty"))
	}
	if c.LevelName == "" {
		err = multierr.Append(err, errors.New("level-name is empty"))
	}
	if c.ChatRadius < 0 {
		err = multierr.Append(err, fmt.Errorf("chat-radius must not be negative, got %v", c.ChatRadius))
	}
	err = multierr.Append(err, c.ChunkLoadingLimiter.validate("chunk-loading-limiter"))
	err = multierr.Append(err, c.PlayerChunkLoadingLimiter.validate("player-chunk-loading-limiter"))
	if e := c.Spatial.World().Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("spatial: %w", e))
	}
	return err
}

// Limiter - токен поповнюється раз на Every, в запасі максимум N
type Limiter struct {
	Every duration `toml:"every"`
	N     int
}

func (l *Limiter) Limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(l.Every.Duration), l.N)
}

func (l *Limiter) validate(name string) error {
	if l.Every.Duration <= 0 || l.N <= 0 {
		return fmt.Errorf("%s: every and n must be positive, got %v and %d", name, l.Every.Duration, l.N)
	}
	return nil
}

// duration читається з рядка на кшталт "50ms"
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return
}
