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

// Йоу, чат! Теги групують ID реєстру під одним іменем: "minecraft:water"
// це стояча і текуча вода. Клієнт без тегу рідин не вміє в них плавати.

package game

import (
	"io"
	"slices"

	"golang.org/x/exp/maps"

	pk "github.com/Tnze/go-mc/net/packet"
)

// Tag - теги одного реєстру, наприклад "minecraft:fluid"
type Tag[T ~int32 | ~int] struct {
	Registry string
	Values   map[string][]T
}

// WriteTo пише реєстр і його теги. Теги йдуть за абеткою, щоб пакет не стрибав між запусками
func (t Tag[T]) WriteTo(w io.Writer) (int64, error) {
	names := maps.Keys(t.Values)
	slices.Sort(names)

	fields := pk.Tuple{pk.Identifier(t.Registry), pk.VarInt(len(names))}
	for _, name := range names {
		ids := t.Values[name]
		fields = append(fields, pk.Identifier(name), pk.VarInt(len(ids)))
		for _, id := range ids {
			fields = append(fields, pk.VarInt(id))
		}
	}
	return fields.WriteTo(w)
}

// defaultTags - поки що тільки рідини
var defaultTags = []pk.FieldEncoder{
	Tag[int32]{
		Registry: "minecraft:fluid",
		Values: map[string][]int32{
			"minecraft:water": {1, 2},
			"minecraft:lava":  {3, 4},
		},
	},
}
