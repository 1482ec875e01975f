package codec

import (
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

const (
	kindPing  proto.Kind = 1
	kindChat  proto.Kind = 2
	kindOther proto.Kind = 9
)

type ping struct {
	ID     int32
	Marker string // which codec decoded the packet
}

func (*ping) Kind() proto.Kind { return kindPing }

type chat struct{ Message string }

func (*chat) Kind() proto.Kind { return kindChat }

// pingCodec writes a marker byte so tests can tell which chain entry was resolved.
func pingCodec(marker uint8) Codec {
	return Func(func(c *cursor.Cursor, p *ping) {
		c.WriteUint8(marker)
		c.WriteVarint32(p.ID)
	}, func(c *cursor.Cursor) (*ping, error) {
		m, err := c.Uint8()
		if err != nil {
			return nil, err
		}
		id, err := c.Varint32()
		if err != nil {
			return nil, err
		}
		return &ping{ID: id, Marker: string('0' + rune(m))}, nil
	})
}

var chatCodec = Func(func(c *cursor.Cursor, p *chat) {
	c.WriteString(p.Message)
}, func(c *cursor.Cursor) (*chat, error) {
	s, err := c.String()
	return &chat{Message: s}, err
})

// byteHeader is a one byte packet header.
type byteHeader struct{}

func (byteHeader) ReadHeader(c *cursor.Cursor) (proto.Kind, error) {
	b, err := c.Uint8()
	return proto.Kind(b), err
}

func (byteHeader) WriteHeader(c *cursor.Cursor, k proto.Kind) { c.WriteUint8(uint8(k)) }

func versions(ps ...proto.Protocol) []*proto.Version {
	vs := make([]*proto.Version, len(ps))
	for i, p := range ps {
		vs[i] = &proto.Version{Protocol: p, Names: []string{p.String()}}
	}
	return vs
}

func TestRegistry_ResolvesClosestLowerDefinition(t *testing.T) {
	r, err := NewRegistry(versions(10, 15, 20, 25, 29),
		Chain(kindPing, "Ping", []proto.Protocol{10, 20}, pingCodec(1), pingCodec(2)),
	)
	require.NoError(t, err)

	tests := map[proto.Protocol]proto.Protocol{10: 10, 15: 10, 20: 20, 25: 20, 29: 20}
	for v, introduced := range tests {
		table, err := r.Resolve(v)
		require.NoError(t, err)
		d, ok := table.Definition(kindPing)
		require.True(t, ok)
		assert.Equal(t, introduced, d.IntroducedAt, "version %d", v)
	}
}

func TestRegistry_BoundedChain(t *testing.T) {
	// [10,20) and [20,30): 25 resolves to the definition introduced at 20
	defs := []Definition{
		{Kind: kindPing, Name: "Ping", IntroducedAt: 10, SupersededAt: 20, Codec: pingCodec(1)},
		{Kind: kindPing, Name: "Ping", IntroducedAt: 20, SupersededAt: 30, Codec: pingCodec(2)},
	}
	r, err := NewRegistry(versions(10, 25, 29), defs)
	require.NoError(t, err)

	table, err := r.Resolve(25)
	require.NoError(t, err)
	d, ok := table.Definition(kindPing)
	require.True(t, ok)
	assert.Equal(t, proto.Protocol(20), d.IntroducedAt)
}

func TestRegistry_RejectsUncoveredVersion(t *testing.T) {
	tests := map[string][]Definition{
		"ends early": {
			{Kind: kindPing, Name: "Ping", IntroducedAt: 10, SupersededAt: 20, Codec: pingCodec(1)},
		},
		"starts late": Since(kindPing, "Ping", 20, pingCodec(1)),
	}
	for name, defs := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(versions(10, 25, 30), defs)
			require.ErrorIs(t, err, proto.ErrUnresolvedVersion)
		})
	}
}

func TestRegistry_PartialChain(t *testing.T) {
	r, err := NewRegistry(versions(10, 25, 30),
		Since(kindChat, "Chat", 10, chatCodec),
		Partial([]Definition{
			{Kind: kindPing, Name: "Ping", IntroducedAt: 20, SupersededAt: 30, Codec: pingCodec(1)},
		}),
	)
	require.NoError(t, err)

	for v, exists := range map[proto.Protocol]bool{10: false, 25: true, 30: false} {
		table, err := r.Resolve(v)
		require.NoError(t, err)
		_, ok := table.Codec(kindPing)
		assert.Equal(t, exists, ok, "version %d", v)
		_, ok = table.Codec(kindChat)
		assert.True(t, ok, "version %d", v)
	}
}

func TestRegistry_RejectsBrokenChains(t *testing.T) {
	tests := map[string][]Definition{
		"gap": {
			{Kind: kindPing, IntroducedAt: 10, SupersededAt: 20, Codec: pingCodec(1)},
			{Kind: kindPing, IntroducedAt: 21, Codec: pingCodec(2)},
		},
		"overlap": {
			{Kind: kindPing, IntroducedAt: 10, SupersededAt: 25, Codec: pingCodec(1)},
			{Kind: kindPing, IntroducedAt: 20, Codec: pingCodec(2)},
		},
		"open ended overlap": {
			{Kind: kindPing, IntroducedAt: 10, Codec: pingCodec(1)},
			{Kind: kindPing, IntroducedAt: 20, Codec: pingCodec(2)},
		},
		"empty range": {
			{Kind: kindPing, IntroducedAt: 20, SupersededAt: 20, Codec: pingCodec(1)},
		},
	}
	for name, defs := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(versions(10, 20), defs)
			require.ErrorIs(t, err, proto.ErrUnresolvedVersion)
		})
	}
}

func TestRegistry_ResolveUnsupported(t *testing.T) {
	r, err := NewRegistry(versions(10), Since(kindChat, "Chat", 10, chatCodec))
	require.NoError(t, err)
	_, err = r.Resolve(11)
	require.ErrorIs(t, err, proto.ErrUnresolvedVersion)
	assert.Equal(t, proto.Protocol(10), r.Lowest().Protocol)
	assert.Equal(t, proto.Protocol(10), r.Highest().Protocol)
}

func newStreamTable(t *testing.T) *Table {
	r, err := NewRegistry(versions(10),
		Since(kindPing, "Ping", 10, pingCodec(1)),
		Since(kindChat, "Chat", 10, chatCodec),
	)
	require.NoError(t, err)
	table, err := r.Resolve(10)
	require.NoError(t, err)
	return table
}

func TestDecodeStream_SkipsUnknownKindByDeclaredLength(t *testing.T) {
	table := newStreamTable(t)
	enc := NewEncoder(table, byteHeader{})
	dec := NewDecoder(table, byteHeader{}, proto.ServerBound, testr.New(t))

	stream := cursor.NewWriter(0)
	require.NoError(t, enc.AppendFrame(stream, &chat{Message: "before"}))
	// unknown kind with a declared payload length of 12 bytes
	unknown := []byte{byte(kindOther), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	require.Len(t, unknown, 12)
	stream.WriteByteSlice(unknown)
	require.NoError(t, enc.AppendFrame(stream, &ping{ID: 300}))

	var got []proto.Packet
	err := dec.DecodeStream(stream.Bytes(), func(ctx *proto.PacketContext) error {
		got = append(got, ctx.Packet)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, &chat{Message: "before"}, got[0])
	assert.Equal(t, &ping{ID: 300, Marker: "1"}, got[1])
}

func TestDecodeStream_TruncatedPacketDoesNotStopStream(t *testing.T) {
	table := newStreamTable(t)
	enc := NewEncoder(table, byteHeader{})
	dec := NewDecoder(table, byteHeader{}, proto.ServerBound, testr.New(t))

	stream := cursor.NewWriter(0)
	// chat declaring a 10 byte string inside a 3 byte frame
	stream.WriteByteSlice([]byte{byte(kindChat), 10, 'a'})
	require.NoError(t, enc.AppendFrame(stream, &chat{Message: "after"}))

	var got []proto.Packet
	require.NoError(t, dec.DecodeStream(stream.Bytes(), func(ctx *proto.PacketContext) error {
		got = append(got, ctx.Packet)
		return nil
	}))
	assert.Equal(t, []proto.Packet{&chat{Message: "after"}}, got)
}

func TestDecodeStream_ProtocolViolationStops(t *testing.T) {
	table := newStreamTable(t)
	dec := NewDecoder(table, byteHeader{}, proto.ServerBound, testr.New(t))

	stream := cursor.NewWriter(0)
	// string length far beyond anything the frame could hold
	frame := cursor.NewWriter(0)
	frame.WriteUint8(uint8(kindChat))
	frame.WriteVaruint32(cursor.MaxStringLength + 1)
	stream.WriteByteSlice(frame.Bytes())

	err := dec.DecodeStream(stream.Bytes(), func(*proto.PacketContext) error {
		t.Fatal("no packet expected")
		return nil
	})
	require.ErrorIs(t, err, proto.ErrProtocolViolation)
}

func TestDecode_LeftBytesStillDelivered(t *testing.T) {
	table := newStreamTable(t)
	dec := NewDecoder(table, byteHeader{}, proto.ClientBound, testr.New(t))

	ctx, err := dec.Decode([]byte{byte(kindChat), 1, 'x', 0x00})
	require.ErrorIs(t, err, proto.ErrDecoderLeftBytes)
	assert.True(t, ctx.KnownPacket())
	assert.Equal(t, &chat{Message: "x"}, ctx.Packet)
}

func TestEncoder_RejectsForeignPacket(t *testing.T) {
	r, err := NewRegistry(versions(10), Since(kindPing, "Ping", 10, chatCodec))
	require.NoError(t, err)
	table, err := r.Resolve(10)
	require.NoError(t, err)

	_, err = NewEncoder(table, byteHeader{}).Encode(&ping{})
	require.Error(t, err)
	_, err = NewEncoder(table, byteHeader{}).Encode(&chat{})
	require.ErrorIs(t, err, proto.ErrUnknownPacketKind)
}
