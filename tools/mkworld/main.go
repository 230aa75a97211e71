// Йоу, чат! Сервер не генерує світ сам, йому потрібен готовий level.dat
// і хоча б один регіон. Ця утиліта створює мінімальний світ:
//
//	mkworld level -dir world -spawn 48,100,35
//	mkworld chunk -dir world -x 0 -z 0
package main

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Tnze/go-mc/nbt"
	"github.com/Tnze/go-mc/save"
	"github.com/Tnze/go-mc/save/region"
	"github.com/urfave/cli/v2"
)

const (
	flagDir   = "dir"
	flagName  = "name"
	flagSpawn = "spawn"
	flagX     = "x"
	flagZ     = "z"
)

func main() {
	app := &cli.App{
		Name:  "mkworld",
		Usage: "create a minimal world the server can load",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagDir, Value: "world", Usage: "world directory"},
		},
		Commands: []*cli.Command{
			{
				Name:  "level",
				Usage: "write level.dat",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagName, Value: "world", Usage: "level name"},
					&cli.IntSliceFlag{Name: flagSpawn, Value: cli.NewIntSlice(48, 100, 35), Usage: "spawn x,y,z"},
				},
				Action: func(c *cli.Context) error {
					spawn := c.IntSlice(flagSpawn)
					if len(spawn) != 3 {
						return fmt.Errorf("spawn needs 3 coordinates, got %d", len(spawn))
					}
					return writeLevel(c.String(flagDir), c.String(flagName),
						[3]int32{int32(spawn[0]), int32(spawn[1]), int32(spawn[2])})
				},
			},
			{
				Name:  "chunk",
				Usage: "write a bedrock chunk into its region file",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagX, Usage: "chunk x"},
					&cli.IntFlag{Name: flagZ, Usage: "chunk z"},
				},
				Action: func(c *cli.Context) error {
					return writeChunk(c.String(flagDir), int32(c.Int(flagX)), int32(c.Int(flagZ)))
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// writeLevel записує level.dat в dir. 1.19.4, креатив, нормальна складність.
func writeLevel(dir, name string, spawn [3]int32) (err error) {
	level := &save.Level{
		Data: save.LevelData{
			Version: struct {
				ID       int32 `nbt:"Id"`
				Name     string
				Series   string
				Snapshot byte
			}{
				ID:     2975,
				Name:   "1.19.4",
				Series: "main",
			},
			LevelName:      name,
			GameType:       1,
			LastPlayed:     time.Now().UnixMilli(),
			SpawnX:         spawn[0],
			SpawnY:         spawn[1],
			SpawnZ:         spawn[2],
			Difficulty:     2,
			GameRules:      make(map[string]string),
			DataVersion:    3337,
			Initialized:    true,
			StorageVersion: 19133,
		},
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "level.dat"))
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	gw := gzip.NewWriter(f)
	if err := nbt.NewEncoder(gw).Encode(level, ""); err != nil {
		return fmt.Errorf("encode level: %w", err)
	}
	return gw.Close()
}

// writeChunk кладе чанк (x, z) в файл регіону r.<x>>5>.<z>>5>.mca,
// відкриваючи існуючий регіон, якщо він вже є.
func writeChunk(dir string, x, z int32) (err error) {
	regionDir := filepath.Join(dir, "region")
	if err := os.MkdirAll(regionDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(regionDir, fmt.Sprintf("r.%d.%d.mca", x>>5, z>>5))

	var r *region.Region
	if _, statErr := os.Stat(path); statErr == nil {
		r, err = region.Open(path)
	} else {
		r, err = region.Create(path)
	}
	if err != nil {
		return fmt.Errorf("open region: %w", err)
	}
	defer func() { err = errors.Join(err, r.Close()) }()

	data, err := bedrockChunk(x, z)
	if err != nil {
		return err
	}
	return r.WriteSector(int(x&31), int(z&31), data)
}

// bedrockChunk - найпростіший чанк: одна секція бедроку на самому дні
func bedrockChunk(x, z int32) ([]byte, error) {
	// 384 блоки висоти - 9 біт на колонку, 7 колонок в int64, 256 колонок
	heightmap := func() []int64 { return make([]int64, 37) }
	chunk := map[string]any{
		"DataVersion": int32(3337),
		"xPos":        x,
		"yPos":        int32(-4),
		"zPos":        z,
		"Status":      "full",
		"LastUpdate":  int64(0),
		"Heightmaps": map[string][]int64{
			"WORLD_SURFACE":             heightmap(),
			"WORLD_SURFACE_WG":          heightmap(),
			"OCEAN_FLOOR":               heightmap(),
			"OCEAN_FLOOR_WG":            heightmap(),
			"MOTION_BLOCKING":           heightmap(),
			"MOTION_BLOCKING_NO_LEAVES": heightmap(),
		},
		"sections": []map[string]any{
			{
				"Y": int8(-4),
				"block_states": map[string]any{
					"palette": []map[string]any{{"Name": "minecraft:bedrock"}},
					"data":    []int64{0},
				},
				"biomes": map[string]any{
					"palette": []string{"minecraft:plains"},
					"data":    []int64{0},
				},
			},
		},
	}

	var buf bytes.Buffer
	buf.WriteByte(1) // gzip
	gw := gzip.NewWriter(&buf)
	if err := nbt.NewEncoder(gw).Encode(chunk, ""); err != nil {
		return nil, fmt.Errorf("encode chunk: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
