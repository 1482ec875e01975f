package packet

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/bridge/pkg/edition/java/proto/version"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/util/uuid"
)

var testUUID, _ = uuid.Parse(`123e4567-e89b-12d3-a456-426614174000`)

var packets = []proto.Packet{
	&Handshake{ProtocolVersion: 763, ServerAddress: "localhost", Port: 25565, NextStatus: HandshakeLogin},
	&LoginStart{Username: "Steve", HolderID: testUUID},
	&LoginStart{Username: "Alex"},
	&LoginDisconnect{Reason: `{"text":"bye"}`},
	&LoginSuccess{UUID: testUUID, Username: "Steve", Properties: []ProfileProperty{
		{Name: "textures", Value: "e30=", Signature: "sig"},
		{Name: "other", Value: "v"},
	}},
	&SetCompression{Threshold: 256},
	&LoginPluginRequest{MessageID: 1, Channel: "velocity:player_info", Data: []byte{4}},
	&LoginPluginResponse{MessageID: 1},
	&BlockEntityData{Position: BlockPos{X: -30000000, Y: -64, Z: 29999999}, Type: BlockEntitySkull, Data: map[string]any{
		"SkullOwner": map[string]any{"Name": "Notch"},
	}},
	&BlockEntityData{Position: BlockPos{X: 1, Y: 2, Z: 3}, Type: 7},
	&BlockUpdate{Position: BlockPos{X: 10, Y: 319, Z: -10}, BlockState: 12345},
	&PluginMessage{Channel: "geyser:custom", Data: []byte{0, 0, 0, 202}},
	&Disconnect{Reason: `{"text":"kicked"}`},
	&KeepAlive{RandomID: -42},
	&SystemChat{Content: `{"text":"hi"}`, Overlay: true},
	&PlayerInfoUpdate{
		Actions: AddPlayer | InitializeChat | UpdateGameMode | UpdateListed | UpdateLatency | UpdateDisplayName,
		Entries: []PlayerInfoEntry{{
			ProfileID:  testUUID,
			Name:       "Steve",
			Properties: []ProfileProperty{{Name: "textures", Value: "abc"}},
			ChatSession: &RemoteChatSession{
				ID: testUUID, ExpiresAt: 99, PublicKey: []byte{1}, KeySignature: []byte{2},
			},
			GameMode:    1,
			Listed:      true,
			Latency:     120,
			DisplayName: `{"text":"Steve"}`,
		}},
	},
	&PlayerInfoRemove{PlayerIDs: []uuid.UUID{testUUID, uuid.Nil}},
	&PlayerInfoUpdate{Actions: UpdateLatency, Entries: []PlayerInfoEntry{{ProfileID: testUUID, Latency: 3}}},
}

func TestPackets(t *testing.T) {
	var defs [][]codec.Definition
	defs = append(defs, HandshakeDefinitions()...)
	defs = append(defs, LoginDefinitions()...)
	defs = append(defs, PlayDefinitions()...)
	r, err := codec.NewRegistry(version.Supported, defs...)
	require.NoError(t, err)
	tbl, err := r.Resolve(version.Minecraft_1_20.Protocol)
	require.NoError(t, err)

	for _, sample := range packets {
		msg := fmt.Sprintf("Type: %T", sample)
		c, ok := tbl.Codec(sample.Kind())
		require.True(t, ok, msg)

		w := cursor.NewWriter(64)
		require.NoError(t, c.Encode(w, sample), msg)
		rd := cursor.New(w.Bytes())
		got, err := c.Decode(rd)
		require.NoError(t, err, msg)
		assert.Zero(t, rd.Len(), msg)
		assert.Equal(t, sample, got, msg)
	}
}

func TestPosition(t *testing.T) {
	w := cursor.NewWriter(8)
	writePosition(w, BlockPos{X: 18357644, Y: 831, Z: -20882616})
	// example from https://wiki.vg/Protocol#Position
	assert.Equal(t, []byte{0x46, 0x07, 0x63, 0x2c, 0x15, 0xb4, 0x83, 0x3f}, w.Bytes())

	p, err := readPosition(cursor.New(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, BlockPos{X: 18357644, Y: 831, Z: -20882616}, p)
}

func TestLoginStartEmptyUsername(t *testing.T) {
	_, err := loginStart.Decode(cursor.New([]byte{0x00, 0x00}))
	require.Error(t, err)
}

func TestPlayerInfoEntryTextures(t *testing.T) {
	e := PlayerInfoEntry{Properties: []ProfileProperty{{Name: "textures", Value: "abc"}}}
	v, ok := e.Textures()
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	_, ok = (&PlayerInfoEntry{}).Textures()
	assert.False(t, ok)
}
