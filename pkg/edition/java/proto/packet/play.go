package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Tnze/go-mc/nbt"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// Block entity types sent in BlockEntityData.
const (
	BlockEntitySkull int32 = 15
)

// BlockEntityData sets the NBT of a block entity.
type BlockEntityData struct {
	Position BlockPos
	Type     int32
	// Data is nil if the server sent an empty tag.
	Data map[string]any
}

func (*BlockEntityData) Kind() proto.Kind { return KindBlockEntityData }

const tagEnd = 0

var blockEntityData = codec.Func(func(c *cursor.Cursor, p *BlockEntityData) {
	writePosition(c, p.Position)
	writeVarInt(c, p.Type)
	if p.Data == nil {
		c.WriteUint8(tagEnd)
		return
	}
	var buf bytes.Buffer
	if err := nbt.NewEncoder(&buf).Encode(p.Data, ""); err != nil {
		panic(fmt.Sprintf("error encoding nbt: %v", err))
	}
	c.WriteRaw(buf.Bytes())
}, func(c *cursor.Cursor) (p *BlockEntityData, err error) {
	defer cursor.Recover(&err)
	p = &BlockEntityData{
		Position: cursor.Must(readPosition(c)),
		Type:     cursor.Must(readVarInt(c)),
	}
	if rem := c.Remaining(); len(rem) != 0 && rem[0] == tagEnd {
		return p, c.Skip(1)
	}
	rd := bytes.NewReader(c.Remaining())
	if _, err = nbt.NewDecoder(rd).Decode(&p.Data); err != nil {
		return nil, fmt.Errorf("error decoding nbt: %w", err)
	}
	return p, c.Skip(c.Len() - rd.Len())
})

// BlockUpdate changes one block.
type BlockUpdate struct {
	Position   BlockPos
	BlockState int32
}

func (*BlockUpdate) Kind() proto.Kind { return KindBlockUpdate }

var blockUpdate = codec.Func(func(c *cursor.Cursor, p *BlockUpdate) {
	writePosition(c, p.Position)
	writeVarInt(c, p.BlockState)
}, func(c *cursor.Cursor) (p *BlockUpdate, err error) {
	defer cursor.Recover(&err)
	p = &BlockUpdate{
		Position:   cursor.Must(readPosition(c)),
		BlockState: cursor.Must(readVarInt(c)),
	}
	return
})

// PluginMessage is a custom payload on a namespaced channel.
type PluginMessage struct {
	Channel string
	Data    []byte
}

func (*PluginMessage) Kind() proto.Kind { return KindPluginMessage }

var pluginMessage = codec.Func(func(c *cursor.Cursor, p *PluginMessage) {
	c.WriteString(p.Channel)
	c.WriteRaw(p.Data)
}, func(c *cursor.Cursor) (p *PluginMessage, err error) {
	defer cursor.Recover(&err)
	p = &PluginMessage{Channel: cursor.Must(readString(c, 0))}
	p.Data = cursor.Must(c.Raw(c.Len()))
	return
})

// Disconnect kicks the player in the play state.
type Disconnect struct {
	Reason string // json text component
}

func (*Disconnect) Kind() proto.Kind { return KindDisconnect }

var disconnect = codec.Func(func(c *cursor.Cursor, d *Disconnect) {
	c.WriteString(d.Reason)
}, func(c *cursor.Cursor) (*Disconnect, error) {
	s, err := readString(c, 262144)
	return &Disconnect{Reason: s}, err
})

// KeepAlive is sent by the server and must be echoed by the client.
type KeepAlive struct {
	RandomID int64
}

func (*KeepAlive) Kind() proto.Kind { return KindKeepAlive }

var keepAlive = codec.Func(func(c *cursor.Cursor, k *KeepAlive) {
	c.WriteInt64(binary.BigEndian, k.RandomID)
}, func(c *cursor.Cursor) (k *KeepAlive, err error) {
	k = new(KeepAlive)
	k.RandomID, err = c.Int64(binary.BigEndian)
	return
})

// SystemChat is a server message shown in chat or the action bar.
type SystemChat struct {
	Content string // json text component
	Overlay bool
}

func (*SystemChat) Kind() proto.Kind { return KindSystemChat }

var systemChat = codec.Func(func(c *cursor.Cursor, s *SystemChat) {
	c.WriteString(s.Content)
	c.WriteBool(s.Overlay)
}, func(c *cursor.Cursor) (s *SystemChat, err error) {
	defer cursor.Recover(&err)
	s = &SystemChat{
		Content: cursor.Must(readString(c, 262144)),
		Overlay: cursor.Must(c.Bool()),
	}
	return
})
