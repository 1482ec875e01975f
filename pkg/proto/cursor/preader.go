package cursor

import (
	"encoding/binary"
	"fmt"

	"go.minekube.com/bridge/pkg/util/uuid"
)

// PReader reads from a Cursor and panics on the first error.
// Codecs with many fields use it together with Recover:
//
//	func decode(c *cursor.Cursor) (p proto.Packet, err error) {
//		defer cursor.Recover(&err)
//		r := cursor.PanicReader(c)
//		...
//	}
type PReader struct {
	c *Cursor
}

// PanicReader returns a PReader over c.
func PanicReader(c *Cursor) *PReader {
	return &PReader{c}
}

// readErr wraps an error so Recover can tell it apart from unrelated panics.
type readErr struct{ error }

func check(err error) {
	if err != nil {
		panic(readErr{err})
	}
}

// Uint8 reads a byte into v.
func (r *PReader) Uint8(v *uint8) {
	var err error
	*v, err = r.c.Uint8()
	check(err)
}

// Int8 reads a signed byte into v.
func (r *PReader) Int8(v *int8) {
	var err error
	*v, err = r.c.Int8()
	check(err)
}

// Bool reads a bool into v.
func (r *PReader) Bool(v *bool) {
	var err error
	*v, err = r.c.Bool()
	check(err)
}

// Uint16 reads a uint16 into v.
func (r *PReader) Uint16(order binary.ByteOrder, v *uint16) {
	var err error
	*v, err = r.c.Uint16(order)
	check(err)
}

// Int32 reads an int32 into v.
func (r *PReader) Int32(order binary.ByteOrder, v *int32) {
	var err error
	*v, err = r.c.Int32(order)
	check(err)
}

// Uint32 reads a uint32 into v.
func (r *PReader) Uint32(order binary.ByteOrder, v *uint32) {
	var err error
	*v, err = r.c.Uint32(order)
	check(err)
}

// Int64 reads an int64 into v.
func (r *PReader) Int64(order binary.ByteOrder, v *int64) {
	var err error
	*v, err = r.c.Int64(order)
	check(err)
}

// Float32 reads a float32 into v.
func (r *PReader) Float32(order binary.ByteOrder, v *float32) {
	var err error
	*v, err = r.c.Float32(order)
	check(err)
}

// Varuint32 reads a varuint32 into v.
func (r *PReader) Varuint32(v *uint32) {
	var err error
	*v, err = r.c.Varuint32()
	check(err)
}

// Varuint64 reads a varuint64 into v.
func (r *PReader) Varuint64(v *uint64) {
	var err error
	*v, err = r.c.Varuint64()
	check(err)
}

// Varint32 reads a zig-zag varint32 into v.
func (r *PReader) Varint32(v *int32) {
	var err error
	*v, err = r.c.Varint32()
	check(err)
}

// Varint64 reads a zig-zag varint64 into v.
func (r *PReader) Varint64(v *int64) {
	var err error
	*v, err = r.c.Varint64()
	check(err)
}

// String reads a length-prefixed string into v.
func (r *PReader) String(v *string) {
	var err error
	*v, err = r.c.String()
	check(err)
}

// ByteSlice reads a length-prefixed byte array into v.
func (r *PReader) ByteSlice(v *[]byte) {
	var err error
	*v, err = r.c.ByteSlice()
	check(err)
}

// UUID reads a UUID into v.
func (r *PReader) UUID(v *uuid.UUID) {
	var err error
	*v, err = r.c.UUID()
	check(err)
}

// Must returns v or panics with err like a PReader does.
// It adapts edition specific read functions to Recover.
func Must[T any](v T, err error) T {
	check(err)
	return v
}

// Array reads a varuint32 length-prefixed array into s.
func Array[T any](r *PReader, s *[]T, elem ElementReader[T]) {
	var err error
	*s, err = ReadArray(r.c, elem)
	check(err)
}

// Recover recovers a panic raised by a PReader and stores its error in err.
// Other panics are re-raised.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	re, ok := r.(readErr)
	if !ok {
		panic(r)
	}
	if *err == nil {
		*err = re.error
		return
	}
	*err = fmt.Errorf("%w: %w", *err, re.error)
}

// RecoverFunc calls fn and converts a PReader panic into the returned error.
func RecoverFunc(fn func() error) (err error) {
	defer Recover(&err)
	return fn()
}
