// Package cursor implements the bounds-checked byte cursor every packet codec is
// composed from.
package cursor

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// MaxStringLength is the largest string or byte array length accepted when reading.
const MaxStringLength = 1 << 23

// Cursor is a sequential reader and writer over a growable byte buffer.
//
// Reads start at the current offset and fail with proto.ErrTruncated when the buffer
// has fewer bytes left than requested. Writes always append to the end of the buffer
// and never fail. After a failed read the offset is undefined and the caller must
// abort decoding the packet.
type Cursor struct {
	buf []byte
	off int
}

// New returns a Cursor reading b from the start.
// The Cursor takes ownership of b.
func New(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// NewWriter returns an empty Cursor with room for sizeHint bytes.
func NewWriter(sizeHint int) *Cursor {
	return &Cursor{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the whole underlying buffer.
func (c *Cursor) Bytes() []byte { return c.buf }

// Remaining returns the unread part of the buffer.
func (c *Cursor) Remaining() []byte { return c.buf[c.off:] }

// Len returns the number of unread bytes.
func (c *Cursor) Len() int { return len(c.buf) - c.off }

// Offset returns the current read offset.
func (c *Cursor) Offset() int { return c.off }

// Reset clears the buffer keeping its capacity.
func (c *Cursor) Reset() {
	c.buf = c.buf[:0]
	c.off = 0
}

func (c *Cursor) next(n int) ([]byte, error) {
	if n < 0 {
		return nil, proto.Violationf("negative read length %d", n)
	}
	if c.Len() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			proto.ErrTruncated, n, c.off, c.Len())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Skip advances the read offset by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.next(n)
	return err
}

// Raw reads the next n bytes. The returned slice is a copy.
func (c *Cursor) Raw(n int) ([]byte, error) {
	b, err := c.next(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// WriteRaw appends b as is.
func (c *Cursor) WriteRaw(b []byte) {
	c.buf = append(c.buf, b...)
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteUint8 writes one byte.
func (c *Cursor) WriteUint8(v uint8) {
	c.buf = append(c.buf, v)
}

// Int8 reads one signed byte.
func (c *Cursor) Int8() (int8, error) {
	v, err := c.Uint8()
	return int8(v), err
}

// WriteInt8 writes one signed byte.
func (c *Cursor) WriteInt8(v int8) { c.WriteUint8(uint8(v)) }

// Bool reads one byte, any non-zero value is true.
func (c *Cursor) Bool() (bool, error) {
	v, err := c.Uint8()
	return v != 0, err
}

// WriteBool writes v as 1 or 0.
func (c *Cursor) WriteBool(v bool) {
	if v {
		c.WriteUint8(1)
		return
	}
	c.WriteUint8(0)
}

// Uint16 reads a 16-bit unsigned integer in the given byte order.
func (c *Cursor) Uint16(order binary.ByteOrder) (uint16, error) {
	b, err := c.next(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

// WriteUint16 writes v in the given byte order.
func (c *Cursor) WriteUint16(order binary.ByteOrder, v uint16) {
	var b [2]byte
	order.PutUint16(b[:], v)
	c.buf = append(c.buf, b[:]...)
}

// Int16 reads a 16-bit signed integer in the given byte order.
func (c *Cursor) Int16(order binary.ByteOrder) (int16, error) {
	v, err := c.Uint16(order)
	return int16(v), err
}

// WriteInt16 writes v in the given byte order.
func (c *Cursor) WriteInt16(order binary.ByteOrder, v int16) { c.WriteUint16(order, uint16(v)) }

// Uint32 reads a 32-bit unsigned integer in the given byte order.
func (c *Cursor) Uint32(order binary.ByteOrder) (uint32, error) {
	b, err := c.next(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// WriteUint32 writes v in the given byte order.
func (c *Cursor) WriteUint32(order binary.ByteOrder, v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	c.buf = append(c.buf, b[:]...)
}

// Int32 reads a 32-bit signed integer in the given byte order.
func (c *Cursor) Int32(order binary.ByteOrder) (int32, error) {
	v, err := c.Uint32(order)
	return int32(v), err
}

// WriteInt32 writes v in the given byte order.
func (c *Cursor) WriteInt32(order binary.ByteOrder, v int32) { c.WriteUint32(order, uint32(v)) }

// Uint64 reads a 64-bit unsigned integer in the given byte order.
func (c *Cursor) Uint64(order binary.ByteOrder) (uint64, error) {
	b, err := c.next(8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

// WriteUint64 writes v in the given byte order.
func (c *Cursor) WriteUint64(order binary.ByteOrder, v uint64) {
	var b [8]byte
	order.PutUint64(b[:], v)
	c.buf = append(c.buf, b[:]...)
}

// Int64 reads a 64-bit signed integer in the given byte order.
func (c *Cursor) Int64(order binary.ByteOrder) (int64, error) {
	v, err := c.Uint64(order)
	return int64(v), err
}

// WriteInt64 writes v in the given byte order.
func (c *Cursor) WriteInt64(order binary.ByteOrder, v int64) { c.WriteUint64(order, uint64(v)) }

// Float32 reads an IEEE 754 single precision float in the given byte order.
func (c *Cursor) Float32(order binary.ByteOrder) (float32, error) {
	v, err := c.Uint32(order)
	return math.Float32frombits(v), err
}

// WriteFloat32 writes v in the given byte order.
func (c *Cursor) WriteFloat32(order binary.ByteOrder, v float32) {
	c.WriteUint32(order, math.Float32bits(v))
}

// Varuint32 reads an unsigned variable-length integer of at most 5 bytes.
func (c *Cursor) Varuint32() (uint32, error) {
	var v uint32
	for i := uint(0); i < 35; i += 7 {
		b, err := c.Uint8()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7f) << i
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, proto.Violationf("varuint32 did not terminate after 5 bytes")
}

// WriteVaruint32 writes v as unsigned variable-length integer.
func (c *Cursor) WriteVaruint32(v uint32) {
	for v >= 0x80 {
		c.buf = append(c.buf, byte(v)|0x80)
		v >>= 7
	}
	c.buf = append(c.buf, byte(v))
}

// Varuint64 reads an unsigned variable-length integer of at most 10 bytes.
func (c *Cursor) Varuint64() (uint64, error) {
	var v uint64
	for i := uint(0); i < 70; i += 7 {
		b, err := c.Uint8()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << i
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, proto.Violationf("varuint64 did not terminate after 10 bytes")
}

// WriteVaruint64 writes v as unsigned variable-length integer.
func (c *Cursor) WriteVaruint64(v uint64) {
	for v >= 0x80 {
		c.buf = append(c.buf, byte(v)|0x80)
		v >>= 7
	}
	c.buf = append(c.buf, byte(v))
}

// Varint32 reads a zig-zag encoded signed variable-length integer.
func (c *Cursor) Varint32() (int32, error) {
	ux, err := c.Varuint32()
	if err != nil {
		return 0, err
	}
	return int32(ux>>1) ^ -int32(ux&1), nil
}

// WriteVarint32 writes v zig-zag encoded.
func (c *Cursor) WriteVarint32(v int32) {
	c.WriteVaruint32(uint32(v<<1) ^ uint32(v>>31))
}

// Varint64 reads a zig-zag encoded signed variable-length integer.
func (c *Cursor) Varint64() (int64, error) {
	ux, err := c.Varuint64()
	if err != nil {
		return 0, err
	}
	return int64(ux>>1) ^ -int64(ux&1), nil
}

// WriteVarint64 writes v zig-zag encoded.
func (c *Cursor) WriteVarint64(v int64) {
	c.WriteVaruint64(uint64(v<<1) ^ uint64(v>>63))
}

// length reads a varuint32 length prefix and validates it against the remaining bytes.
func (c *Cursor) length(max int) (int, error) {
	l, err := c.Varuint32()
	if err != nil {
		return 0, err
	}
	if int64(l) > int64(max) {
		return 0, proto.Violationf("declared length %d exceeds maximum %d", l, max)
	}
	return int(l), nil
}

// ByteSlice reads a varuint32 length-prefixed byte array.
func (c *Cursor) ByteSlice() ([]byte, error) {
	n, err := c.length(MaxStringLength)
	if err != nil {
		return nil, err
	}
	return c.Raw(n)
}

// WriteByteSlice writes b prefixed with its length.
func (c *Cursor) WriteByteSlice(b []byte) {
	c.WriteVaruint32(uint32(len(b)))
	c.buf = append(c.buf, b...)
}

// String reads a varuint32 length-prefixed UTF-8 string.
func (c *Cursor) String() (string, error) {
	n, err := c.length(MaxStringLength)
	if err != nil {
		return "", err
	}
	b, err := c.next(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteString writes s prefixed with its length.
func (c *Cursor) WriteString(s string) {
	c.WriteVaruint32(uint32(len(s)))
	c.buf = append(c.buf, s...)
}

// UUID reads a UUID as two little-endian 64-bit halves, most significant half first.
func (c *Cursor) UUID() (uuid.UUID, error) {
	b, err := c.next(16)
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[:8], binary.LittleEndian.Uint64(b[:8]))
	binary.BigEndian.PutUint64(id[8:], binary.LittleEndian.Uint64(b[8:]))
	return id, nil
}

// WriteUUID writes id as two little-endian 64-bit halves, most significant half first.
func (c *Cursor) WriteUUID(id uuid.UUID) {
	c.WriteUint64(binary.LittleEndian, binary.BigEndian.Uint64(id[:8]))
	c.WriteUint64(binary.LittleEndian, binary.BigEndian.Uint64(id[8:]))
}
