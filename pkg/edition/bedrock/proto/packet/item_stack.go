package packet

import (
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/version"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// ItemStackResponse status values.
const (
	ItemStackResponseStatusOK uint8 = iota
	ItemStackResponseStatusError
)

// ItemStackResponse answers the client's item stack requests.
type ItemStackResponse struct {
	Responses []ItemStackResponseEntry
}

func (*ItemStackResponse) Kind() proto.Kind { return IDItemStackResponse }

// ItemStackResponseEntry is the response to one request.
// Containers are only present if Status is ItemStackResponseStatusOK.
type ItemStackResponseEntry struct {
	Status     uint8
	RequestID  int32
	Containers []StackResponseContainer
}

// StackResponseContainer lists the changed slots of one container.
type StackResponseContainer struct {
	ContainerID uint8
	Items       []StackResponseItem
}

// StackResponseItem is the final state of one changed slot.
type StackResponseItem struct {
	Slot           uint8
	HotbarSlot     uint8
	Count          uint8
	StackNetworkID int32
	// CustomName exists since 1.16.200.
	CustomName string
	// DurabilityCorrection exists since 1.16.210.
	DurabilityCorrection int32
}

// stackItemCodec is the part of the item stack response layout that changed between versions.
type stackItemCodec struct {
	read  cursor.ElementReader[StackResponseItem]
	write cursor.ElementWriter[StackResponseItem]
}

func readStackItemBase(r *cursor.PReader, it *StackResponseItem) {
	r.Uint8(&it.Slot)
	r.Uint8(&it.HotbarSlot)
	r.Uint8(&it.Count)
	r.Varint32(&it.StackNetworkID)
}

func writeStackItemBase(c *cursor.Cursor, it StackResponseItem) {
	c.WriteUint8(it.Slot)
	c.WriteUint8(it.HotbarSlot)
	c.WriteUint8(it.Count)
	c.WriteVarint32(it.StackNetworkID)
}

var (
	stackItem407 = stackItemCodec{
		read: func(c *cursor.Cursor) (it StackResponseItem, err error) {
			defer cursor.Recover(&err)
			readStackItemBase(cursor.PanicReader(c), &it)
			return
		},
		write: writeStackItemBase,
	}
	stackItem422 = stackItemCodec{
		read: func(c *cursor.Cursor) (it StackResponseItem, err error) {
			defer cursor.Recover(&err)
			r := cursor.PanicReader(c)
			readStackItemBase(r, &it)
			r.String(&it.CustomName)
			return
		},
		write: func(c *cursor.Cursor, it StackResponseItem) {
			writeStackItemBase(c, it)
			c.WriteString(it.CustomName)
		},
	}
	stackItem428 = stackItemCodec{
		read: func(c *cursor.Cursor) (it StackResponseItem, err error) {
			defer cursor.Recover(&err)
			r := cursor.PanicReader(c)
			readStackItemBase(r, &it)
			r.Varint32(&it.DurabilityCorrection)
			r.String(&it.CustomName)
			return
		},
		write: func(c *cursor.Cursor, it StackResponseItem) {
			writeStackItemBase(c, it)
			c.WriteVarint32(it.DurabilityCorrection)
			c.WriteString(it.CustomName)
		},
	}
)

func (s stackItemCodec) readContainer(c *cursor.Cursor) (ct StackResponseContainer, err error) {
	if ct.ContainerID, err = c.Uint8(); err != nil {
		return
	}
	ct.Items, err = cursor.ReadArray(c, s.read)
	return
}

func (s stackItemCodec) writeContainer(c *cursor.Cursor, ct StackResponseContainer) {
	c.WriteUint8(ct.ContainerID)
	cursor.WriteArray(c, ct.Items, s.write)
}

func (s stackItemCodec) readEntry(c *cursor.Cursor) (e ItemStackResponseEntry, err error) {
	if e.Status, err = c.Uint8(); err != nil {
		return
	}
	if e.RequestID, err = c.Varint32(); err != nil {
		return
	}
	if e.Status == ItemStackResponseStatusOK {
		e.Containers, err = cursor.ReadArray(c, s.readContainer)
	}
	return
}

func (s stackItemCodec) writeEntry(c *cursor.Cursor, e ItemStackResponseEntry) {
	c.WriteUint8(e.Status)
	c.WriteVarint32(e.RequestID)
	if e.Status == ItemStackResponseStatusOK {
		cursor.WriteArray(c, e.Containers, s.writeContainer)
	}
}

// codec returns the ItemStackResponse codec using this item layout.
func (s stackItemCodec) codec() codec.Codec {
	return codec.Func(func(c *cursor.Cursor, p *ItemStackResponse) {
		cursor.WriteArray(c, p.Responses, s.writeEntry)
	}, func(c *cursor.Cursor) (p *ItemStackResponse, err error) {
		p = new(ItemStackResponse)
		p.Responses, err = cursor.ReadArray(c, s.readEntry)
		return
	})
}

// ReadStackResponseContainer reads one container record in the layout of protocol v.
func ReadStackResponseContainer(c *cursor.Cursor, v proto.Protocol) (StackResponseContainer, error) {
	return stackItemLayout(v).readContainer(c)
}

// WriteStackResponseContainer writes one container record in the layout of protocol v.
func WriteStackResponseContainer(c *cursor.Cursor, v proto.Protocol, ct StackResponseContainer) {
	stackItemLayout(v).writeContainer(c, ct)
}

func stackItemLayout(v proto.Protocol) stackItemCodec {
	switch {
	case v.GreaterEqual(version.Minecraft_1_16_210):
		return stackItem428
	case v.GreaterEqual(version.Minecraft_1_16_200):
		return stackItem422
	default:
		return stackItem407
	}
}
