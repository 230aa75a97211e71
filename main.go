// Йоу, чат! Тут сервер стартує: читаємо конфіг, піднімаємо логер,
// гру і моніторинг, а потім слухаємо порт, поки нас не вб'ють.

package main

import (
	"errors"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"FlowyRealm/game"
	"FlowyRealm/monitor"
	"github.com/Tnze/go-mc/chat"
	"github.com/Tnze/go-mc/server"
)

func main() {
	app := &cli.App{
		Name:  "flowyrealm",
		Usage: "Minecraft server with per-tick BVH spatial queries",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug log output"},
			&cli.StringFlag{Name: "config", Value: "config.toml", Usage: "path to the config file"},
		},
		Action: func(ctx *cli.Context) error {
			return run(ctx.String("config"), ctx.Bool("debug"))
		},
	}
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, isDebug bool) error {
	var logger *zap.Logger
	if isDebug {
		logger = unwrap(zap.NewDevelopment())
	} else {
		logger = unwrap(zap.NewProduction())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Server start")
	printBuildInfo(logger)
	defer logger.Info("Server exit")

	config, err := readConfig(configPath)
	if err != nil {
		logger.Error("Read config fail", zap.Error(err))
		return err
	}
	// Всі помилки конфігу одразу, а не по одній
	if err := config.Validate(); err != nil {
		logger.Error("Invalid config", zap.Error(err))
		return err
	}
	if config.LogFile != "" {
		logger = withLogFile(logger, config.LogFile, isDebug)
	}

	playerList := server.NewPlayerList(config.MaxPlayers)
	serverInfo := server.NewPingInfo(
		"FlowyRealm "+server.ProtocolName,
		server.ProtocolVersion,
		chat.Text(config.MessageOfTheDay),
		nil,
	)
	gamePlay := game.NewGame(logger, config, playerList, serverInfo)

	if config.MonitorAddress != "" {
		hub := monitor.NewHub(logger.Named("monitor"))
		defer hub.Close()
		gamePlay.SetTickObserver(hub)
		go serveMonitor(logger, config.MonitorAddress, hub)
	}

	s := server.Server{
		Logger: zap.NewStdLog(logger),
		ListPingHandler: struct {
			*server.PlayerList
			*server.PingInfo
		}{playerList, serverInfo},
		LoginHandler: &server.MojangLoginHandler{
			OnlineMode:           config.OnlineMode,
			EnforceSecureProfile: config.EnforceSecureProfile,
			Threshold:            config.NetworkCompressionThreshold,
			LoginChecker:         playerList,
		},
		GamePlay: gamePlay,
	}

	logger.Info("Start listening", zap.String("address", config.ListenAddress))
	if err := s.Listen(config.ListenAddress); err != nil {
		logger.Error("Server listening error", zap.Error(err))
		return err
	}
	return nil
}

// printBuildInfo - з якими прапорцями зібрано бінарник, для баг-репортів
func printBuildInfo(logger *zap.Logger) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	settings := make(map[string]string, len(info.Settings))
	for _, v := range info.Settings {
		settings[v.Key] = v.Value
	}
	logger.Debug("Build info", zap.String("go", info.GoVersion), zap.Any("settings", settings))
}

// readConfig накладає файл на дефолти. Невідомі ключі - помилка, щоб одруківки не губились
func readConfig(path string) (game.Config, error) {
	c := game.DefaultConfig()
	meta, err := toml.DecodeFile(path, &c)
	if err != nil {
		return game.Config{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		var err errUnknownConfig
		for _, key := range undecoded {
			err = append(err, key.String())
		}
		return game.Config{}, err
	}
	return c, nil
}

// withLogFile дублює логи в JSON файл з ротацією
func withLogFile(logger *zap.Logger, path string, debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // мегабайт
		MaxBackups: 5,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), file, level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

func serveMonitor(logger *zap.Logger, addr string, hub *monitor.Hub) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("Monitor listening", zap.String("address", addr), zap.String("path", monitor.Path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Monitor server error", zap.Error(err))
	}
}

type errUnknownConfig []string

func (e errUnknownConfig) Error() string {
	return "unknown config keys: [" + strings.Join(e, ", ") + "]"
}

func unwrap[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
