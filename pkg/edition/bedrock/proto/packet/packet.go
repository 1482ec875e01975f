// Package packet contains the Bedrock edition packets the bridge understands and
// their wire layouts per protocol version.
package packet

import (
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// Bedrock packet ids. The id occupies the low 10 bits of the packet header.
const (
	IDLogin                       proto.Kind = 0x01
	IDPlayStatus                  proto.Kind = 0x02
	IDDisconnect                  proto.Kind = 0x05
	IDText                        proto.Kind = 0x09
	IDUpdateBlock                 proto.Kind = 0x15
	IDBlockActorData              proto.Kind = 0x38
	IDMapInfoRequest              proto.Kind = 0x44
	IDTransfer                    proto.Kind = 0x55
	IDModalFormRequest            proto.Kind = 0x64
	IDModalFormResponse           proto.Kind = 0x65
	IDSetLocalPlayerAsInitialized proto.Kind = 0x71
	IDNetworkSettings             proto.Kind = 0x8f
	IDItemStackResponse           proto.Kind = 0x94
	IDRequestNetworkSettings      proto.Kind = 0xc1

	// NetEase client extensions.
	IDNeteasePythonRpc     proto.Kind = 0xc8
	IDNeteaseMarketOpen    proto.Kind = 0xc9
	IDNeteaseMarketReceive proto.Kind = 0xca
	IDConfirmSkin          proto.Kind = 0xe4
)

// BlockPos is the position of a block in the world.
type BlockPos [3]int32

// X returns the x coordinate.
func (p BlockPos) X() int32 { return p[0] }

// Y returns the y coordinate.
func (p BlockPos) Y() int32 { return p[1] }

// Z returns the z coordinate.
func (p BlockPos) Z() int32 { return p[2] }

// readUBlockPos reads a block position whose y coordinate is unsigned.
func readUBlockPos(r *cursor.PReader, pos *BlockPos) {
	var y uint32
	r.Varint32(&pos[0])
	r.Varuint32(&y)
	r.Varint32(&pos[2])
	pos[1] = int32(y)
}

func writeUBlockPos(c *cursor.Cursor, pos BlockPos) {
	c.WriteVarint32(pos[0])
	c.WriteVaruint32(uint32(pos[1]))
	c.WriteVarint32(pos[2])
}
