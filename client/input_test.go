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

package client

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"FlowyRealm/world"
	"github.com/Tnze/go-mc/data/packetid"
	pk "github.com/Tnze/go-mc/net/packet"
)

func testClient(t *testing.T) *Client {
	p := world.NewPlayer("alice", uuid.New(), nil, nil, world.Position{0, 64, 0}, world.Rotation{})
	return New(zaptest.NewLogger(t), nil, p)
}

func packet(id packetid.ServerboundPacketID, fields ...pk.FieldEncoder) pk.Packet {
	var buf bytes.Buffer
	for _, f := range fields {
		if _, err := f.WriteTo(&buf); err != nil {
			panic(err)
		}
	}
	return pk.Packet{ID: int32(id), Data: buf.Bytes()}
}

func handle(t *testing.T, c *Client, p pk.Packet) {
	t.Helper()
	h := c.handlers[p.ID]
	if h == nil {
		t.Fatalf("no handler for packet %#x", p.ID)
	}
	if err := h(p, c); err != nil {
		t.Fatal(err)
	}
}

func TestClient_Movement(t *testing.T) {
	c := testClient(t)

	handle(t, c, packet(packetid.ServerboundMovePlayerPosRot,
		pk.Double(1.5), pk.Double(65), pk.Double(-3),
		pk.Float(180), pk.Float(120),
		pk.Boolean(true),
	))
	if diff := cmp.Diff(world.Position{1.5, 65, -3}, c.Inputs.Position); diff != "" {
		t.Errorf("position (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(world.Rotation{180, 90}, c.Inputs.Rotation); diff != "" {
		t.Errorf("pitch is not clamped (-want +got):\n%s", diff)
	}
	if !c.Inputs.OnGround {
		t.Error("OnGround is not set")
	}

	handle(t, c, packet(packetid.ServerboundMovePlayerRot, pk.Float(10), pk.Float(float32(math.NaN())), pk.Boolean(false)))
	if c.Inputs.Rotation != (world.Rotation{10, 0}) {
		t.Errorf("rotation = %v", c.Inputs.Rotation)
	}
	if c.Inputs.Position != (world.Position{1.5, 65, -3}) {
		t.Error("rotation packet moved the player")
	}

	handle(t, c, packet(packetid.ServerboundMovePlayerStatusOnly, pk.Boolean(true)))
	if !c.Inputs.OnGround {
		t.Error("status packet is ignored")
	}

	handle(t, c, packet(packetid.ServerboundAcceptTeleportation, pk.VarInt(42)))
	if c.Inputs.TeleportID != 42 {
		t.Errorf("TeleportID = %d", c.Inputs.TeleportID)
	}
}

func TestClient_SwingAndSneak(t *testing.T) {
	c := testClient(t)

	handle(t, c, packet(packetid.ServerboundSwing, handOff))
	if c.Inputs.Swing {
		t.Error("off hand swing counts as an attack")
	}
	handle(t, c, packet(packetid.ServerboundSwing, handMain))
	if !c.Inputs.Swing {
		t.Error("main hand swing is ignored")
	}

	eid := pk.VarInt(c.GetPlayer().EntityID)
	handle(t, c, packet(packetid.ServerboundPlayerCommand, eid, actionStartSneaking, pk.VarInt(0)))
	if !c.Inputs.Sneaking {
		t.Error("start sneaking is ignored")
	}
	handle(t, c, packet(packetid.ServerboundPlayerCommand, eid, pk.VarInt(3), pk.VarInt(0)))
	if !c.Inputs.Sneaking {
		t.Error("sprinting changed sneaking")
	}
	handle(t, c, packet(packetid.ServerboundPlayerCommand, eid, actionStopSneaking, pk.VarInt(0)))
	if c.Inputs.Sneaking {
		t.Error("stop sneaking is ignored")
	}
}
