package cursor

import (
	"encoding/binary"

	"go.minekube.com/bridge/pkg/proto"
)

// ElementReader decodes one array element.
type ElementReader[T any] func(c *Cursor) (T, error)

// ElementWriter encodes one array element.
type ElementWriter[T any] func(c *Cursor, v T)

// ReadArray reads a varuint32 count followed by count elements.
// The destination is pre-sized from the count.
func ReadArray[T any](c *Cursor, elem ElementReader[T]) ([]T, error) {
	n, err := c.Varuint32()
	if err != nil {
		return nil, err
	}
	return readElements(c, int64(n), elem)
}

// WriteArray writes the true element count as varuint32 followed by the elements.
func WriteArray[T any](c *Cursor, s []T, elem ElementWriter[T]) {
	c.WriteVaruint32(uint32(len(s)))
	for _, v := range s {
		elem(c, v)
	}
}

// ReadArrayUint32 is like ReadArray but the count is a fixed-width uint32.
func ReadArrayUint32[T any](c *Cursor, order binary.ByteOrder, elem ElementReader[T]) ([]T, error) {
	n, err := c.Uint32(order)
	if err != nil {
		return nil, err
	}
	return readElements(c, int64(n), elem)
}

// WriteArrayUint32 is like WriteArray but the count is a fixed-width uint32.
func WriteArrayUint32[T any](c *Cursor, order binary.ByteOrder, s []T, elem ElementWriter[T]) {
	c.WriteUint32(order, uint32(len(s)))
	for _, v := range s {
		elem(c, v)
	}
}

func readElements[T any](c *Cursor, n int64, elem ElementReader[T]) ([]T, error) {
	// every element occupies at least one byte
	if n > int64(c.Len()) {
		return nil, proto.Violationf("array count %d exceeds %d remaining bytes", n, c.Len())
	}
	s := make([]T, 0, n)
	for i := int64(0); i < n; i++ {
		v, err := elem(c)
		if err != nil {
			return nil, err
		}
		s = append(s, v)
	}
	return s, nil
}
