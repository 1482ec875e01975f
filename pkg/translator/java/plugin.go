package java

import (
	"fmt"

	bpacket "go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/session/cache"
	"go.minekube.com/bridge/pkg/translator"
	"go.minekube.com/bridge/pkg/util/errs"
)

// Bedrock packets server plugins may send on translator.ChannelPacket.
var pluginPackets = map[proto.Kind]bool{
	bpacket.IDNeteaseMarketOpen: true,
	bpacket.IDTransfer:          true,
}

func (t *translators) pluginMessage(s *session.Session, p *packet.PluginMessage) error {
	var err error
	switch p.Channel {
	case translator.ChannelForm:
		err = formRequest(s, p.Data)
	case translator.ChannelTransfer:
		err = transfer(s, p.Data)
	case translator.ChannelPacket:
		err = t.pluginPacket(s, p.Data)
	default:
		s.Log().V(2).Info("ignoring plugin message", "channel", p.Channel)
		return nil
	}
	if err != nil {
		// malformed plugin data never ends the session
		return errs.WrapSilent(fmt.Errorf("error handling plugin message on %s: %w", p.Channel, err))
	}
	return nil
}

// formRequest caches a form sent by the server and shows it
// once the client initialized the player.
//
// Layout: form type byte, uint16 form id, JSON form data.
func formRequest(s *session.Session, data []byte) error {
	r := translator.NewPluginReader(data)
	typ, err := r.Byte()
	if err != nil {
		return err
	}
	javaID, err := r.Uint16()
	if err != nil {
		return err
	}
	body := r.Rest()
	if len(body) == 0 {
		return fmt.Errorf("form %d has no data", javaID)
	}
	f := s.Forms.Add(cache.Form{JavaID: javaID, Type: typ, Data: string(body)})
	if s.State() != session.Initialized {
		return nil // sent on initialization
	}
	return s.SendUpstream(&bpacket.ModalFormRequest{FormID: f.ID, FormData: f.Data})
}

// transfer moves the client to another Bedrock server.
//
// Layout: int32 port, address.
func transfer(s *session.Session, data []byte) error {
	r := translator.NewPluginReader(data)
	port, err := r.Int32()
	if err != nil {
		return err
	}
	address := string(r.Rest())
	if port <= 0 || port > 0xFFFF || address == "" {
		return fmt.Errorf("invalid transfer destination %q:%d", address, port)
	}
	s.Log().Info("transferring player", "address", address, "port", port)
	return s.SendUpstream(&bpacket.Transfer{Address: address, Port: uint16(port)})
}

// pluginPacket forwards a Bedrock packet encoded by a server plugin.
//
// Layout: int32 Bedrock packet id, packet payload in the session's protocol.
func (t *translators) pluginPacket(s *session.Session, data []byte) error {
	if t.bedrock == nil {
		return nil
	}
	r := translator.NewPluginReader(data)
	id, err := r.Int32()
	if err != nil {
		return err
	}
	kind := proto.Kind(id)
	if !pluginPackets[kind] {
		return fmt.Errorf("packet id %#x not allowed", id)
	}
	table, err := t.bedrock.Resolve(s.Protocol())
	if err != nil {
		return err
	}
	c, ok := table.Codec(kind)
	if !ok {
		return fmt.Errorf("%w: %#x in protocol %d", proto.ErrUnknownPacketKind, id, s.Protocol())
	}
	pc := cursor.New(r.Rest())
	pk, err := c.Decode(pc)
	if err != nil {
		return err
	}
	if pc.Len() != 0 {
		return fmt.Errorf("%w: %d", proto.ErrDecoderLeftBytes, pc.Len())
	}
	return s.SendUpstream(pk)
}
