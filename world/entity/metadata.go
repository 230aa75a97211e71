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

// Йоу, чат! Метадані - це все, що клієнт малює на сутності крім позиції:
// присів гравець чи стоїть, які шари скіну показувати і так далі.
// Для гравця нам вистачає трьох полів: прапорці, поза і частини скіну.

package entity

import (
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

// Індекси полів метаданих гравця (протокол 1.19.4)
const (
	IndexFlags     byte = 0
	IndexPose      byte = 6
	IndexSkinParts byte = 17
)

// Біти поля IndexFlags
const (
	FlagOnFire    byte = 0x01
	FlagCrouching byte = 0x02
	FlagSprinting byte = 0x08
	FlagInvisible byte = 0x20
)

// MetadataSet - набір полів, що йде в пакет SetEntityData
type MetadataSet []MetadataField

// MetadataField - номер поля і його значення
type MetadataField struct {
	Index byte
	MetadataValue
}

// WriteTo пише поля по черзі і закриває набір байтом 0xFF
func (m MetadataSet) WriteTo(w io.Writer) (n int64, err error) {
	var tmpN int64
	for i := range m {
		tmpN, err = pk.UnsignedByte(m[i].Index).WriteTo(w)
		n += tmpN
		if err != nil {
			return
		}
		tmpN, err = m[i].WriteTo(w)
		n += tmpN
		if err != nil {
			return
		}
	}
	tmpN, err = pk.UnsignedByte(0xFF).WriteTo(w)
	return n + tmpN, err
}

// WriteTo пише тип значення, а потім саме значення
func (m *MetadataField) WriteTo(w io.Writer) (n int64, err error) {
	n1, err := pk.VarInt(m.MetadataValue.TypeID()).WriteTo(w)
	if err != nil {
		return n1, err
	}
	n2, err := m.MetadataValue.WriteTo(w)
	return n1 + n2, err
}

// MetadataValue - значення поля, яке знає свій ID типу
type MetadataValue interface {
	TypeID() int32
	pk.Field
}

type (
	Byte struct{ pk.Byte }
	Pose int32
)

func (b *Byte) TypeID() int32 { return 0 }
func (p *Pose) TypeID() int32 { return 20 }

// Пози сутностей
const (
	Standing Pose = iota
	FallFlying
	Sleeping
	Swimming
	SpinAttack
	Crouching
	LongJumping
	Dying
	Croaking
	UsingTongue
	Sitting
	Roaring
	Sniffing
	Emerging
	Digging
)

func (p Pose) WriteTo(w io.Writer) (n int64, err error) {
	return pk.VarInt(p).WriteTo(w)
}

func (p *Pose) ReadFrom(r io.Reader) (n int64, err error) {
	return (*pk.VarInt)(p).ReadFrom(r)
}

// PlayerState збирає метадані гравця: присів він чи ні, і які шари скіну видно.
// Без частин скіну клієнт малює інших гравців без шапки і рукавів.
func PlayerState(crouching bool, skinParts byte) MetadataSet {
	flags, pose := byte(0), Standing
	if crouching {
		flags |= FlagCrouching
		pose = Crouching
	}
	return MetadataSet{
		{Index: IndexFlags, MetadataValue: &Byte{pk.Byte(flags)}},
		{Index: IndexPose, MetadataValue: &pose},
		{Index: IndexSkinParts, MetadataValue: &Byte{pk.Byte(skinParts)}},
	}
}
