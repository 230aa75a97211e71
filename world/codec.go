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

package world

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/Tnze/go-mc/nbt"
	"github.com/Tnze/go-mc/registry"
)

// NetworkCodec - реєстри (виміри, біоми, типи чату), які сервер відправляє
// клієнту в пакеті логіну. Заповнюється LoadNetworkCodec до старту гри.
var NetworkCodec registry.NetworkCodec

// LoadNetworkCodec читає NBT файл реєстрів, стиснений gzip або ні.
func LoadNetworkCodec(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read network codec: %w", err)
	}
	if len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b {
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("open gzip network codec: %w", err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return fmt.Errorf("decompress network codec: %w", err)
		}
	}
	if err := nbt.Unmarshal(data, &NetworkCodec); err != nil {
		return fmt.Errorf("decode network codec %s: %w", path, err)
	}
	return nil
}
