package packet

import (
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/proto/codec"
)

// Text types.
const (
	TextTypeRaw byte = iota
	TextTypeChat
	TextTypeTranslation
	TextTypePopup
	TextTypeJukeboxPopup
	TextTypeTip
	TextTypeSystem
	TextTypeWhisper
	TextTypeAnnouncement
	TextTypeObjectWhisper
	TextTypeObject
	TextTypeObjectAnnouncement
)

// Text is a chat, popup or tip message shown to the client.
type Text struct {
	TextType         byte
	NeedsTranslation bool
	SourceName       string   // chat, whisper and announcement only
	Message          string
	Parameters       []string // translation, popup and jukebox popup only
	XUID             string
	PlatformChatID   string
}

func (*Text) Kind() proto.Kind { return IDText }

func (p *Text) hasSource() bool {
	switch p.TextType {
	case TextTypeChat, TextTypeWhisper, TextTypeAnnouncement:
		return true
	}
	return false
}

func (p *Text) hasParameters() bool {
	switch p.TextType {
	case TextTypeTranslation, TextTypePopup, TextTypeJukeboxPopup:
		return true
	}
	return false
}

var text = codec.Func(func(c *cursor.Cursor, p *Text) {
	c.WriteUint8(p.TextType)
	c.WriteBool(p.NeedsTranslation)
	if p.hasSource() {
		c.WriteString(p.SourceName)
	}
	c.WriteString(p.Message)
	if p.hasParameters() {
		c.WriteVaruint32(uint32(len(p.Parameters)))
		for _, s := range p.Parameters {
			c.WriteString(s)
		}
	}
	c.WriteString(p.XUID)
	c.WriteString(p.PlatformChatID)
}, func(c *cursor.Cursor) (p *Text, err error) {
	defer cursor.Recover(&err)
	p = new(Text)
	r := cursor.PanicReader(c)
	r.Uint8(&p.TextType)
	r.Bool(&p.NeedsTranslation)
	if p.hasSource() {
		r.String(&p.SourceName)
	}
	r.String(&p.Message)
	if p.hasParameters() {
		var n uint32
		r.Varuint32(&n)
		if int(n) > c.Len() {
			return nil, proto.Violationf("text parameter count %d exceeds remaining %d bytes", n, c.Len())
		}
		p.Parameters = make([]string, n)
		for i := range p.Parameters {
			r.String(&p.Parameters[i])
		}
	}
	r.String(&p.XUID)
	r.String(&p.PlatformChatID)
	return
})
