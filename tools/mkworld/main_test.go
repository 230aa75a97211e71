package main

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tnze/go-mc/save"
	"github.com/Tnze/go-mc/save/region"
)

func TestWriteLevel(t *testing.T) {
	dir := t.TempDir()
	if err := writeLevel(dir, "test", [3]int32{1, 64, -7}); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "level.dat"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	lv, err := save.ReadLevel(r)
	if err != nil {
		t.Fatal(err)
	}
	if lv.Data.LevelName != "test" {
		t.Errorf("level name = %q", lv.Data.LevelName)
	}
	if got := [3]int32{lv.Data.SpawnX, lv.Data.SpawnY, lv.Data.SpawnZ}; got != [3]int32{1, 64, -7} {
		t.Errorf("spawn = %v", got)
	}
}

func TestWriteChunk(t *testing.T) {
	dir := t.TempDir()
	// Обидва чанки в регіоні r.-1.0
	for _, pos := range [][2]int32{{-1, 0}, {-32, 31}} {
		if err := writeChunk(dir, pos[0], pos[1]); err != nil {
			t.Fatal(err)
		}
	}

	r, err := region.Open(filepath.Join(dir, "region", "r.-1.0.mca"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	for _, sector := range [][2]int{{31, 0}, {0, 31}} {
		if !r.ExistSector(sector[0], sector[1]) {
			t.Errorf("sector %v is missing", sector)
		}
	}
	if r.ExistSector(0, 0) {
		t.Error("unexpected sector 0,0")
	}
}
