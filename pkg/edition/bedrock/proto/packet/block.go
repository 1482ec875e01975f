package packet

import (
	"bytes"
	"fmt"

	"github.com/sandertv/gophertunnel/minecraft/nbt"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// UpdateBlock flags.
const (
	BlockUpdateNeighbours = 1 << iota
	BlockUpdateNetwork
	BlockUpdateNoGraphics
	BlockUpdatePriority
)

// UpdateBlock changes the block at a position to another runtime id.
type UpdateBlock struct {
	Position        BlockPos
	NewBlockRuntime uint32
	Flags           uint32
	Layer           uint32
}

func (*UpdateBlock) Kind() proto.Kind { return IDUpdateBlock }

var updateBlock = codec.Func(func(c *cursor.Cursor, p *UpdateBlock) {
	writeUBlockPos(c, p.Position)
	c.WriteVaruint32(p.NewBlockRuntime)
	c.WriteVaruint32(p.Flags)
	c.WriteVaruint32(p.Layer)
}, func(c *cursor.Cursor) (p *UpdateBlock, err error) {
	defer cursor.Recover(&err)
	p = new(UpdateBlock)
	r := cursor.PanicReader(c)
	readUBlockPos(r, &p.Position)
	r.Varuint32(&p.NewBlockRuntime)
	r.Varuint32(&p.Flags)
	r.Varuint32(&p.Layer)
	return
})

// BlockActorData sets the block entity NBT at a position.
type BlockActorData struct {
	Position BlockPos
	NBTData  map[string]any
}

func (*BlockActorData) Kind() proto.Kind { return IDBlockActorData }

var blockActorData = codec.Func(func(c *cursor.Cursor, p *BlockActorData) {
	writeUBlockPos(c, p.Position)
	writeNBT(c, p.NBTData)
}, func(c *cursor.Cursor) (p *BlockActorData, err error) {
	defer cursor.Recover(&err)
	p = new(BlockActorData)
	readUBlockPos(cursor.PanicReader(c), &p.Position)
	p.NBTData, err = readNBT(c)
	return
})

// readNBT decodes one network little endian NBT compound from the cursor.
func readNBT(c *cursor.Cursor) (map[string]any, error) {
	rd := bytes.NewReader(c.Remaining())
	var m map[string]any
	if err := nbt.NewDecoderWithEncoding(rd, nbt.NetworkLittleEndian).Decode(&m); err != nil {
		return nil, fmt.Errorf("error decoding nbt: %w", err)
	}
	return m, c.Skip(c.Len() - rd.Len())
}

func writeNBT(c *cursor.Cursor, m map[string]any) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := nbt.MarshalEncoding(m, nbt.NetworkLittleEndian)
	if err != nil {
		// maps of NBT-representable values always marshal
		panic(fmt.Sprintf("error encoding nbt: %v", err))
	}
	c.WriteRaw(b)
}
