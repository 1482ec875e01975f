// Package packet contains the Java edition packets the bridge exchanges with its
// backend server.
//
// Java packet ids differ per state, direction and protocol version. The packets here
// are identified by edition wide kinds that the state registries map to wire ids.
package packet

import (
	"encoding/binary"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// Java packet kinds.
const (
	KindHandshake proto.Kind = iota + 1
	KindLoginStart
	KindLoginDisconnect
	KindLoginSuccess
	KindSetCompression
	KindBlockEntityData
	KindBlockUpdate
	KindPluginMessage
	KindDisconnect
	KindKeepAlive
	KindPlayerInfoUpdate
	KindSystemChat
	KindLoginPluginRequest
	KindLoginPluginResponse
	KindPlayerInfoRemove
)

// BlockPos is the position of a block in the world.
type BlockPos struct {
	X, Y, Z int32
}

// readVarInt reads a Java VarInt, which is the unsigned varint of the two's complement value.
func readVarInt(c *cursor.Cursor) (int32, error) {
	v, err := c.Varuint32()
	return int32(v), err
}

func writeVarInt(c *cursor.Cursor, v int32) { c.WriteVaruint32(uint32(v)) }

func readString(c *cursor.Cursor, maxLen int) (string, error) {
	s, err := c.String()
	if err != nil {
		return "", err
	}
	if maxLen > 0 && len(s) > maxLen*4 {
		return "", proto.Violationf("string of %d bytes exceeds %d characters", len(s), maxLen)
	}
	return s, nil
}

// readPosition reads a block position packed into one int64:
// x (26 bits) | z (26 bits) | y (12 bits).
func readPosition(c *cursor.Cursor) (BlockPos, error) {
	v, err := c.Int64(binary.BigEndian)
	if err != nil {
		return BlockPos{}, err
	}
	return BlockPos{
		X: int32(v >> 38),
		Y: int32(v << 52 >> 52),
		Z: int32(v << 26 >> 38),
	}, nil
}

func writePosition(c *cursor.Cursor, p BlockPos) {
	c.WriteInt64(binary.BigEndian, (int64(p.X)&0x3FFFFFF)<<38|(int64(p.Z)&0x3FFFFFF)<<12|int64(p.Y)&0xFFF)
}

// Java encodes UUIDs as one big endian 128-bit integer.
func readUUID(c *cursor.Cursor) (uuid.UUID, error) {
	b, err := c.Raw(16)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromBytes(b)
}

func writeUUID(c *cursor.Cursor, id uuid.UUID) { c.WriteRaw(id[:]) }
