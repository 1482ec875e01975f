// Package java translates the packets the Java server sends to Bedrock clients.
package java

import (
	"github.com/go-logr/logr"

	"go.minekube.com/bridge/pkg/blocks"
	bpacket "go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/skin"
	"go.minekube.com/bridge/pkg/translator"
	"go.minekube.com/bridge/pkg/util"
)

// Options are the dependencies of the Java translators.
type Options struct {
	Blocks *blocks.Registry // Custom blocks displayed for skulls, none if nil.
	Skins  skin.Lookup      // Resolves the textures of skull owners and players.
	// Bedrock decodes the Bedrock packets server plugins send on translator.ChannelPacket.
	// If nil, such messages are dropped.
	Bedrock *codec.Registry
}

type translators struct {
	blocks  *blocks.Registry
	skins   skin.Lookup
	bedrock *codec.Registry
}

// Register registers the translators of server packets.
func Register(b *translator.Builder, opts Options) *translator.Builder {
	if opts.Blocks == nil {
		opts.Blocks = blocks.NewRegistry("", nil, logr.Discard())
	}
	t := &translators{blocks: opts.Blocks, skins: opts.Skins, bedrock: opts.Bedrock}
	translator.Register(b, t.blockEntityData)
	translator.Register(b, t.blockUpdate)
	translator.Register(b, t.playerInfoUpdate)
	translator.Register(b, playerInfoRemove)
	translator.Register(b, t.pluginMessage)
	translator.Register(b, disconnect)
	translator.Register(b, keepAlive)
	translator.Register(b, systemChat, translator.RequiresSpawned())
	return b
}

// KickedError is the close reason of sessions kicked by the Java server.
type KickedError struct {
	Reason string // legacy formatted
}

func (e *KickedError) Error() string { return "kicked by server: " + e.Reason }

// disconnect shows the kick reason and closes the session.
func disconnect(s *session.Session, p *packet.Disconnect) error {
	reason := util.LegacyText(p.Reason)
	_ = s.SendUpstream(&bpacket.Disconnect{Message: reason})
	s.CloseWithError(&KickedError{Reason: reason})
	return nil
}

func keepAlive(s *session.Session, p *packet.KeepAlive) error {
	return s.SendDownstream(&packet.KeepAlive{RandomID: p.RandomID})
}

// systemChat shows server messages in the chat or, for overlays, above the hotbar.
func systemChat(s *session.Session, p *packet.SystemChat) error {
	typ := bpacket.TextTypeRaw
	if p.Overlay {
		typ = bpacket.TextTypeTip
	}
	return s.SendUpstream(&bpacket.Text{TextType: typ, Message: util.LegacyText(p.Content)})
}
