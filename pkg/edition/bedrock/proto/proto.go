// Package proto contains the Bedrock edition packet header, codec registry and the
// batch envelope packets travel in over RakNet.
package proto

import (
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/version"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// Header is the header of a packet containing
// a one varuint32 which is composed of a packet id,
// a sender and target sub client id.
// These ids are used for split screen functionality.
type Header struct {
	SenderSubClient byte
	TargetSubClient byte
}

var _ codec.Header = (*Header)(nil)

const packetIDMask = 0x3FF

// WriteHeader writes the header of a packet of kind k.
func (h *Header) WriteHeader(c *cursor.Cursor, k proto.Kind) {
	c.WriteVaruint32(uint32(k) | uint32(h.SenderSubClient)<<10 | uint32(h.TargetSubClient)<<12)
}

// ReadHeader reads a packet header and returns the packet kind.
// The sub client ids are discarded.
func (h *Header) ReadHeader(c *cursor.Cursor) (proto.Kind, error) {
	value, err := c.Varuint32()
	if err != nil {
		return 0, err
	}
	return proto.Kind(value & packetIDMask), nil
}

// NewRegistry builds the codec registry of every supported Bedrock version.
func NewRegistry() (*codec.Registry, error) {
	return codec.NewRegistry(version.Supported, packet.Definitions()...)
}
