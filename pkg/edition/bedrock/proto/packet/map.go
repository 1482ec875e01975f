package packet

import (
	"encoding/binary"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// MapPixel is a client side map pixel sent along a MapInfoRequest since 1.18.30.
type MapPixel struct {
	Colour int32
	Index  uint16
}

// MapInfoRequest is sent by the client when it needs the data of a map item.
type MapInfoRequest struct {
	MapID  int64
	Pixels []MapPixel
}

func (*MapInfoRequest) Kind() proto.Kind { return IDMapInfoRequest }

var mapInfoRequest291 = codec.Func(func(c *cursor.Cursor, p *MapInfoRequest) {
	c.WriteVarint64(p.MapID)
}, func(c *cursor.Cursor) (p *MapInfoRequest, err error) {
	p = new(MapInfoRequest)
	p.MapID, err = c.Varint64()
	return
})

var mapInfoRequest503 = codec.Func(func(c *cursor.Cursor, p *MapInfoRequest) {
	c.WriteVarint64(p.MapID)
	cursor.WriteArrayUint32(c, binary.LittleEndian, p.Pixels, writeMapPixel)
}, func(c *cursor.Cursor) (p *MapInfoRequest, err error) {
	p = new(MapInfoRequest)
	if p.MapID, err = c.Varint64(); err != nil {
		return nil, err
	}
	p.Pixels, err = cursor.ReadArrayUint32(c, binary.LittleEndian, readMapPixel)
	return
})

func readMapPixel(c *cursor.Cursor) (px MapPixel, err error) {
	if px.Colour, err = c.Int32(binary.LittleEndian); err != nil {
		return
	}
	px.Index, err = c.Uint16(binary.LittleEndian)
	return
}

func writeMapPixel(c *cursor.Cursor, px MapPixel) {
	c.WriteInt32(binary.LittleEndian, px.Colour)
	c.WriteUint16(binary.LittleEndian, px.Index)
}
