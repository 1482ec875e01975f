package codec

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"go.uber.org/atomic"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/util/errs"
)

// Header reads and writes the edition specific packet header that precedes every
// packet body inside a frame.
type Header interface {
	ReadHeader(c *cursor.Cursor) (proto.Kind, error)
	WriteHeader(c *cursor.Cursor, k proto.Kind)
}

// Decoder decodes frame payloads with the codec table of the session's negotiated
// protocol version.
type Decoder struct {
	log       logr.Logger
	header    Header
	direction proto.Direction
	table     atomic.Pointer[Table]
}

// NewDecoder returns a new Decoder reading packets bound to direction.
func NewDecoder(t *Table, h Header, direction proto.Direction, log logr.Logger) *Decoder {
	d := &Decoder{
		log:       log,
		header:    h,
		direction: direction,
	}
	d.table.Store(t)
	return d
}

// SetTable switches the codec table, e.g. after protocol negotiation.
func (d *Decoder) SetTable(t *Table) { d.table.Store(t) }

// Table returns the current codec table.
func (d *Decoder) Table() *Table { return d.table.Load() }

// Decode decodes one frame payload consisting of header and body.
//
// An unknown kind returns a PacketContext with a nil Packet and an error wrapping
// proto.ErrUnknownPacketKind. Bytes left over after a known packet was decoded are
// reported as proto.ErrDecoderLeftBytes along with the decoded packet.
func (d *Decoder) Decode(payload []byte) (ctx *proto.PacketContext, err error) {
	t := d.table.Load()
	ctx = &proto.PacketContext{
		Direction: d.direction,
		Protocol:  t.Protocol(),
		Payload:   payload,
		Size:      len(payload),
	}
	c := cursor.New(payload)
	ctx.Kind, err = d.header.ReadHeader(c)
	if err != nil {
		return ctx, fmt.Errorf("error reading packet header: %w", err)
	}
	codec, ok := t.Codec(ctx.Kind)
	if !ok {
		return ctx, fmt.Errorf("%w %s (protocol: %s, direction: %s)",
			proto.ErrUnknownPacketKind, ctx.Kind, ctx.Protocol, d.direction)
	}
	var p proto.Packet
	err = cursor.RecoverFunc(func() (err error) {
		p, err = codec.Decode(c)
		return err
	})
	if err != nil {
		return ctx, errs.NewSilentErr("error decoding packet (kind: %s, protocol: %s, direction: %s, read: %d, unread: %d): %w",
			ctx.Kind, ctx.Protocol, d.direction, c.Offset(), c.Len(), err)
	}
	ctx.Packet = p
	if c.Len() != 0 {
		return ctx, fmt.Errorf("%w (kind: %s, type: %T, unread: %d)",
			proto.ErrDecoderLeftBytes, ctx.Kind, p, c.Len())
	}
	return ctx, nil
}

// DecodeStream decodes consecutive length-prefixed frames from buf and calls fn
// for each known packet in order.
//
// Frames of unknown kinds are skipped by their declared length. Frames that fail to
// decode are logged and skipped, only a proto.ErrProtocolViolation or an error returned
// by fn stops the stream.
func (d *Decoder) DecodeStream(buf []byte, fn func(*proto.PacketContext) error) error {
	c := cursor.New(buf)
	for c.Len() != 0 {
		n, err := c.Varuint32()
		if err != nil {
			return fmt.Errorf("error reading frame length: %w", err)
		}
		frame, err := c.Raw(int(n))
		if err != nil {
			// the frame boundary is lost, nothing after this can be trusted
			return fmt.Errorf("error reading frame of declared length %d: %w", n, err)
		}
		ctx, err := d.Decode(frame)
		if err != nil {
			switch {
			case proto.IsFatal(err):
				return err
			case errors.Is(err, proto.ErrUnknownPacketKind):
				d.log.V(1).Info("skipping unknown packet", "kind", ctx.Kind, "length", n)
				continue
			case errors.Is(err, proto.ErrDecoderLeftBytes):
				d.log.V(1).Info("packet decoder did not read all bytes", "error", err)
			default:
				d.log.V(1).Info("dropping undecodable packet", "error", err)
				continue
			}
		}
		if err = fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Encoder encodes packets with the codec table of the session's negotiated protocol version.
type Encoder struct {
	header Header
	table  atomic.Pointer[Table]
}

// NewEncoder returns a new Encoder.
func NewEncoder(t *Table, h Header) *Encoder {
	e := &Encoder{header: h}
	e.table.Store(t)
	return e
}

// SetTable switches the codec table, e.g. after protocol negotiation.
func (e *Encoder) SetTable(t *Table) { e.table.Store(t) }

// Table returns the current codec table.
func (e *Encoder) Table() *Table { return e.table.Load() }

// Encode returns the frame payload (header and body) of p.
func (e *Encoder) Encode(p proto.Packet) ([]byte, error) {
	c := cursor.NewWriter(64)
	if err := e.encode(c, p); err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

func (e *Encoder) encode(c *cursor.Cursor, p proto.Packet) error {
	t := e.table.Load()
	codec, ok := t.Codec(p.Kind())
	if !ok {
		return fmt.Errorf("%w %s (%T) in protocol %s", proto.ErrUnknownPacketKind, p.Kind(), p, t.Protocol())
	}
	e.header.WriteHeader(c, p.Kind())
	return codec.Encode(c, p)
}

// AppendFrame appends p to dst as a length-prefixed frame.
func (e *Encoder) AppendFrame(dst *cursor.Cursor, p proto.Packet) error {
	payload, err := e.Encode(p)
	if err != nil {
		return err
	}
	dst.WriteByteSlice(payload)
	return nil
}
