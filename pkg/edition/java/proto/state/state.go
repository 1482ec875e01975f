// Package state contains the Java edition connection states and, per state and
// direction, the packet id mapping and codec registry.
package state

import (
	"fmt"

	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/edition/java/proto/version"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// Registry is the packet registry of one connection state.
type Registry struct {
	Name        string
	ServerBound *Bound
	ClientBound *Bound
}

func (r *Registry) String() string { return r.Name }

// Bound returns the registry of packets bound to d.
func (r *Registry) Bound(d proto.Direction) *Bound {
	if d == proto.ServerBound {
		return r.ServerBound
	}
	return r.ClientBound
}

// Bound is the packet registry of one state and direction.
type Bound struct {
	Header *Header
	codecs *codec.Registry
}

// Resolve returns the codec table of protocol p.
func (b *Bound) Resolve(p proto.Protocol) (*codec.Table, error) {
	return b.codecs.Resolve(p)
}

// Header is the Java packet header, a VarInt packet id.
// It maps the ids of one state and direction to packet kinds.
type Header struct {
	ids   map[proto.Kind]int32
	kinds map[int32]proto.Kind
}

var _ codec.Header = (*Header)(nil)

// unknownKind marks ids without a kind so they miss every codec table.
const unknownKind proto.Kind = 1 << 31

func (h *Header) ReadHeader(c *cursor.Cursor) (proto.Kind, error) {
	id, err := c.Varuint32()
	if err != nil {
		return 0, err
	}
	if k, ok := h.kinds[int32(id)]; ok {
		return k, nil
	}
	return unknownKind | proto.Kind(id), nil
}

func (h *Header) WriteHeader(c *cursor.Cursor, k proto.Kind) {
	id, ok := h.ids[k]
	if !ok {
		// Bound only holds codecs of mapped kinds
		panic(fmt.Sprintf("kind %s has no packet id", k))
	}
	c.WriteVaruint32(uint32(id))
}

// ID returns the packet id of kind k.
func (h *Header) ID(k proto.Kind) (int32, bool) {
	id, ok := h.ids[k]
	return id, ok
}

func newBound(ids map[proto.Kind]int32, defs ...[]codec.Definition) *Bound {
	h := &Header{ids: ids, kinds: make(map[int32]proto.Kind, len(ids))}
	for k, id := range ids {
		h.kinds[id] = k
	}
	var own [][]codec.Definition
	for _, chain := range defs {
		if len(chain) != 0 {
			if _, ok := ids[chain[0].Kind]; ok {
				own = append(own, chain)
			}
		}
	}
	r, err := codec.NewRegistry(version.Supported, own...)
	if err != nil {
		panic(fmt.Sprintf("invalid java packet registry: %v", err))
	}
	return &Bound{Header: h, codecs: r}
}

// Packet ids of protocol 763 (1.20.1).
var (
	Handshake = &Registry{
		Name: "Handshake",
		ServerBound: newBound(map[proto.Kind]int32{
			packet.KindHandshake: 0x00,
		}, packet.HandshakeDefinitions()...),
		ClientBound: newBound(map[proto.Kind]int32{}),
	}
	Login = &Registry{
		Name: "Login",
		ServerBound: newBound(map[proto.Kind]int32{
			packet.KindLoginStart:          0x00,
			packet.KindLoginPluginResponse: 0x02,
		}, packet.LoginDefinitions()...),
		ClientBound: newBound(map[proto.Kind]int32{
			packet.KindLoginDisconnect:    0x00,
			packet.KindLoginSuccess:       0x02,
			packet.KindSetCompression:     0x03,
			packet.KindLoginPluginRequest: 0x04,
		}, packet.LoginDefinitions()...),
	}
	Play = &Registry{
		Name: "Play",
		ServerBound: newBound(map[proto.Kind]int32{
			packet.KindPluginMessage: 0x0D,
			packet.KindKeepAlive:     0x12,
		}, packet.PlayDefinitions()...),
		ClientBound: newBound(map[proto.Kind]int32{
			packet.KindBlockEntityData:  0x08,
			packet.KindBlockUpdate:      0x0A,
			packet.KindPluginMessage:    0x17,
			packet.KindDisconnect:       0x1A,
			packet.KindKeepAlive:        0x23,
			packet.KindPlayerInfoRemove: 0x39,
			packet.KindPlayerInfoUpdate: 0x3A,
			packet.KindSystemChat:       0x64,
		}, packet.PlayDefinitions()...),
	}
)
