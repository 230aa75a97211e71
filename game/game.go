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

// Йоу, чат! Game зв'язує все докупи: світ, таб-список, чат і команди.
// Мережа і логін живуть в main, сюди приходить вже авторизований гравець.

package game

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"FlowyRealm/client"
	"FlowyRealm/world"
	"github.com/Tnze/go-mc/chat"
	"github.com/Tnze/go-mc/data/packetid"
	"github.com/Tnze/go-mc/net"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/Tnze/go-mc/save"
	"github.com/Tnze/go-mc/server"
	"github.com/Tnze/go-mc/yggdrasil/user"
)

// Game - одна гра на сервері з одним виміром
type Game struct {
	log *zap.Logger

	config     Config
	serverInfo *server.PingInfo

	playerProvider world.PlayerProvider
	overworld      *world.World

	chat    localChat
	players *roster
}

func NewGame(log *zap.Logger, config Config, pingList *server.PlayerList, serverInfo *server.PingInfo) *Game {
	// Реєстри потрібні вже в пакеті логіну, без них клієнт не зайде
	if err := world.LoadNetworkCodec(config.NetworkCodec); err != nil {
		log.Fatal("cannot load network codec", zap.Error(err))
	}

	// providers
	overworld, err := createWorld(log, filepath.Join(".", config.LevelName), &config)
	if err != nil {
		log.Fatal("cannot load overworld", zap.Error(err))
	}
	playerProvider := world.NewPlayerProvider(filepath.Join(".", config.LevelName, "playerdata"))

	// keepalive
	keepAlive := server.NewKeepAlive()
	players := &roster{pingList: pingList, keepAlive: keepAlive}
	keepAlive.AddPlayerDelayUpdateHandler(func(c server.KeepAliveClient, latency time.Duration) {
		players.updateLatency(c.(*client.Client), latency)
	})
	go keepAlive.Run(context.TODO())

	return &Game{
		log: log.Named("game"),

		config:     config,
		serverInfo: serverInfo,

		playerProvider: playerProvider,
		overworld:      overworld,

		chat: localChat{
			log:     log.Named("chat"),
			players: players,
			world:   overworld,
			radius:  float32(config.ChatRadius),
			types:   &world.NetworkCodec.ChatType,
		},
		players: players,
	}
}

// createWorld відкриває level.dat в path і піднімає по ньому overworld
func createWorld(logger *zap.Logger, path string, config *Config) (*world.World, error) {
	f, err := os.Open(filepath.Join(path, "level.dat"))
	if err != nil {
		return nil, fmt.Errorf("open level.dat: %w", err)
	}
	defer f.Close()

	r, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("level.dat: %w", err)
	}
	lv, err := save.ReadLevel(r)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}

	return world.New(
		logger.Named("overworld"),
		world.NewProvider(filepath.Join(path, "region"), config.ChunkLoadingLimiter.Limiter()),
		world.Config{
			ViewDistance:  config.ViewDistance,
			SpawnAngle:    lv.Data.SpawnAngle,
			SpawnPosition: [3]int32{lv.Data.SpawnX, lv.Data.SpawnY, lv.Data.SpawnZ},
			Spatial:       config.Spatial.World(),
		},
	), nil
}

// loadPlayer читає збереженого гравця, а новачка ставить на спавн в креативі
func (g *Game) loadPlayer(name string, id uuid.UUID, key *user.PublicKey, properties []user.Property) (*world.Player, error) {
	p, err := g.playerProvider.GetPlayer(name, id, key, properties)
	if !errors.Is(err, os.ErrNotExist) {
		return p, err
	}
	spawn, angle := g.overworld.SpawnPositionAndAngle()
	pos := world.Position{float64(spawn[0]) + 0.5, float64(spawn[1]), float64(spawn[2]) + 0.5}
	p = world.NewPlayer(name, id, key, properties, pos, world.Rotation{angle, 0})
	p.Gamemode = 1
	return p, nil
}

// AcceptPlayer веде гравця від логіну до виходу. Кожен гравець - своя горутина,
// і все, що вона зареєструвала, знімається через defer в зворотньому порядку
func (g *Game) AcceptPlayer(name string, id uuid.UUID, profilePubKey *user.PublicKey, properties []user.Property, protocol int32, conn *net.Conn) {
	logger := g.log.With(
		zap.String("name", name),
		zap.String("uuid", id.String()),
		zap.Int32("protocol", protocol),
	)

	p, err := g.loadPlayer(name, id, profilePubKey, properties)
	if err != nil {
		logger.Error("Read player data error", zap.Error(err))
		return
	}

	c := client.New(logger, conn, p)
	logger.Info("Player join", zap.Int32("eid", p.EntityID))
	defer logger.Info("Player left")

	c.SendLogin(g.overworld, p)
	c.SendServerData(g.serverInfo.Description(), g.serverInfo.FavIcon(), g.config.EnforceSecureProfile)

	g.chat.broadcastSystemChat(chat.TranslateMsg("multiplayer.player.joined", chat.Text(p.Name)).SetColor(chat.Yellow), false)
	defer g.chat.broadcastSystemChat(chat.TranslateMsg("multiplayer.player.left", chat.Text(p.Name)).SetColor(chat.Yellow), false)
	c.AddHandler(packetid.ServerboundChat, g.chat.Handle)
	c.AddHandler(packetid.ServerboundChatCommand, g.handleCommand)

	g.players.join(c, p)
	defer g.players.leave(c)

	c.SendPlayerPosition(p.Position, p.Rotation)
	g.overworld.AddPlayer(c, p, g.config.PlayerChunkLoadingLimiter.Limiter())
	defer g.overworld.RemovePlayer(c, p)
	c.SendPacket(packetid.ClientboundUpdateTags, pk.Array(defaultTags))
	c.SendSetDefaultSpawnPosition(g.overworld.SpawnPositionAndAngle())

	c.Start()
}

// SetTickObserver підключає спостерігача за тіками overworld (моніторинг)
func (g *Game) SetTickObserver(o world.TickObserver) {
	g.overworld.SetTickObserver(o)
}
