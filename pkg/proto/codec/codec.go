// Package codec organizes packet codecs into version chains and resolves them into
// per-protocol tables, and splits payload streams into decoded packets.
package codec

import (
	"fmt"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// Codec encodes and decodes exactly one packet kind for a fixed wire layout.
// Implementations are pure and safe for concurrent use.
type Codec interface {
	// Encode appends the packet body to c.
	// It only fails if p is not of the packet type the codec was built for.
	Encode(c *cursor.Cursor, p proto.Packet) error
	// Decode reads the packet body from c.
	Decode(c *cursor.Cursor) (proto.Packet, error)
}

// Func returns a Codec from typed encode and decode functions.
//
// Version deltas are expressed by building a new Func for the later version that reuses
// the earlier version's field functions and only replaces the ones that changed.
func Func[P proto.Packet](encode func(*cursor.Cursor, P), decode func(*cursor.Cursor) (P, error)) Codec {
	return &funcCodec[P]{encode: encode, decode: decode}
}

type funcCodec[P proto.Packet] struct {
	encode func(*cursor.Cursor, P)
	decode func(*cursor.Cursor) (P, error)
}

func (f *funcCodec[P]) Encode(c *cursor.Cursor, p proto.Packet) error {
	typed, ok := p.(P)
	if !ok {
		var want P
		return fmt.Errorf("codec for %T cannot encode %T", want, p)
	}
	f.encode(c, typed)
	return nil
}

func (f *funcCodec[P]) Decode(c *cursor.Cursor) (proto.Packet, error) {
	return f.decode(c)
}

// Definition is an immutable record associating a packet kind with the
// protocol version range [IntroducedAt, SupersededAt) its Codec applies to.
//
// Multiple Definitions of the same kind form a version chain. A chain must be
// contiguous and non-overlapping.
type Definition struct {
	Kind         proto.Kind
	Name         string // Used in logs and errors.
	IntroducedAt proto.Protocol
	// SupersededAt is the first protocol the Codec no longer applies to.
	// Zero means the definition is open ended.
	SupersededAt proto.Protocol
	Codec        Codec
	// Partial marks a kind that does not exist in every supported version,
	// e.g. a packet introduced after the lowest supported version.
	// Chains without it must cover every supported version.
	Partial bool
}

// Contains reports whether v is in the definition's version range.
func (d *Definition) Contains(v proto.Protocol) bool {
	return v >= d.IntroducedAt && (d.SupersededAt == 0 || v < d.SupersededAt)
}

func (d *Definition) String() string {
	end := "∞"
	if d.SupersededAt != 0 {
		end = d.SupersededAt.String()
	}
	return fmt.Sprintf("%s(%s)[%s,%s)", d.Name, d.Kind, d.IntroducedAt, end)
}

// Chain returns the definitions of one packet kind whose ranges are bounded by
// the consecutive versions in since. The last definition is open ended.
//
//	Chain(kind, "Foo", []proto.Protocol{10, 20}, codec10, codec20)
//
// yields [10,20) -> codec10 and [20,∞) -> codec20.
func Chain(kind proto.Kind, name string, since []proto.Protocol, codecs ...Codec) []Definition {
	if len(since) != len(codecs) {
		panic(fmt.Sprintf("chain %s: %d versions for %d codecs", name, len(since), len(codecs)))
	}
	defs := make([]Definition, len(codecs))
	for i, c := range codecs {
		defs[i] = Definition{
			Kind:         kind,
			Name:         name,
			IntroducedAt: since[i],
			Codec:        c,
		}
		if i+1 < len(since) {
			defs[i].SupersededAt = since[i+1]
		}
	}
	return defs
}

// Since is a short-hand for a single open ended definition.
func Since(kind proto.Kind, name string, v proto.Protocol, c Codec) []Definition {
	return Chain(kind, name, []proto.Protocol{v}, c)
}

// Partial marks every definition of a chain as Partial and returns it.
func Partial(defs []Definition) []Definition {
	for i := range defs {
		defs[i].Partial = true
	}
	return defs
}
