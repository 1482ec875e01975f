package packet

import (
	"encoding/json"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// NeteasePythonRpc carries a msgpack encoded mod SDK call of NetEase clients.
// The payload is forwarded to the server untouched.
type NeteasePythonRpc struct {
	Payload []byte
}

func (*NeteasePythonRpc) Kind() proto.Kind { return IDNeteasePythonRpc }

var neteasePythonRpc = codec.Func(func(c *cursor.Cursor, p *NeteasePythonRpc) {
	c.WriteRaw(p.Payload)
}, func(c *cursor.Cursor) (p *NeteasePythonRpc, err error) {
	p = new(NeteasePythonRpc)
	p.Payload, err = c.Raw(c.Len())
	return
})

// NeteaseMarketOpen opens the in-game store of NetEase clients.
type NeteaseMarketOpen struct {
	Category  string
	EventName string
}

func (*NeteaseMarketOpen) Kind() proto.Kind { return IDNeteaseMarketOpen }

type marketOpenJSON struct {
	EventName string `json:"eventName"`
	Category  string `json:"category"`
}

// the "main" category is sent as empty string
const mainMarketCategory = "main"

var neteaseMarketOpen = codec.Func(func(c *cursor.Cursor, p *NeteaseMarketOpen) {
	body := marketOpenJSON{EventName: p.EventName, Category: p.Category}
	if body.Category == mainMarketCategory {
		body.Category = ""
	}
	b, _ := json.Marshal(body)
	c.WriteByteSlice(b)
}, func(c *cursor.Cursor) (p *NeteaseMarketOpen, err error) {
	s, err := c.String()
	if err != nil {
		return nil, err
	}
	var body marketOpenJSON
	if err = json.Unmarshal([]byte(s), &body); err != nil {
		return nil, proto.Violationf("market open body: %v", err)
	}
	if body.Category == "" {
		body.Category = mainMarketCategory
	}
	return &NeteaseMarketOpen{Category: body.Category, EventName: body.EventName}, nil
})

// NeteaseMarketReceive is sent by NetEase clients after a store purchase was delivered.
type NeteaseMarketReceive struct {
	Flag uint8
}

func (*NeteaseMarketReceive) Kind() proto.Kind { return IDNeteaseMarketReceive }

var neteaseMarketReceive = codec.Func(func(c *cursor.Cursor, p *NeteaseMarketReceive) {
	c.WriteUint8(p.Flag)
}, func(c *cursor.Cursor) (p *NeteaseMarketReceive, err error) {
	p = new(NeteaseMarketReceive)
	if c.Len() != 0 {
		p.Flag, err = c.Uint8()
	}
	return
})

// ConfirmSkin confirms the skin of one player to NetEase clients.
type ConfirmSkin struct {
	Valid    bool
	UUID     uuid.UUID
	SkinData []byte
	UID      string
	Geometry string
}

func (*ConfirmSkin) Kind() proto.Kind { return IDConfirmSkin }

var confirmSkin = codec.Func(func(c *cursor.Cursor, p *ConfirmSkin) {
	c.WriteVaruint32(1)
	c.WriteBool(p.Valid)
	c.WriteUUID(p.UUID)
	c.WriteByteSlice(p.SkinData)
	c.WriteString(p.UID)
	c.WriteString(p.Geometry)
}, func(c *cursor.Cursor) (p *ConfirmSkin, err error) {
	defer cursor.Recover(&err)
	p = new(ConfirmSkin)
	r := cursor.PanicReader(c)
	var n uint32
	r.Varuint32(&n)
	if n != 1 {
		return nil, proto.Violationf("confirm skin with %d entries", n)
	}
	r.Bool(&p.Valid)
	r.UUID(&p.UUID)
	r.ByteSlice(&p.SkinData)
	r.String(&p.UID)
	r.String(&p.Geometry)
	return
})
