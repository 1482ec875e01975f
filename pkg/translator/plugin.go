package translator

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.minekube.com/bridge/pkg/proto/cursor"
)

// Plugin message channels spoken with the Java server.
const (
	ChannelCustom   = "geyser:custom"    // Bedrock only packets forwarded to server plugins
	ChannelForm     = "geyser:form"      // Forms sent by the server and the client's responses
	ChannelMap      = "geyser:map"       // Map data requests
	ChannelTransfer = "geyser:transfer"  // Server initiated transfers
	ChannelPacket   = "floodgate:packet" // Bedrock packets sent by server plugins
	ChannelModSDK   = "netease:modsdk"   // NetEase mod SDK python calls
)

// PluginWriter writes plugin message data in the layout of Java's DataOutput:
// big-endian integers and strings prefixed with their uint16 byte length.
//
// Strings are written as plain UTF-8 which equals Java's modified UTF-8
// for strings without NUL and supplementary characters.
type PluginWriter struct {
	c   *cursor.Cursor
	err error
}

// NewPluginWriter returns an empty PluginWriter.
func NewPluginWriter() *PluginWriter {
	return &PluginWriter{c: cursor.NewWriter(64)}
}

// Int32 writes v as 4 big-endian bytes.
func (w *PluginWriter) Int32(v int32) *PluginWriter {
	w.c.WriteInt32(binary.BigEndian, v)
	return w
}

// Int64 writes v as 8 big-endian bytes.
func (w *PluginWriter) Int64(v int64) *PluginWriter {
	w.c.WriteInt64(binary.BigEndian, v)
	return w
}

// Uint16 writes v as 2 big-endian bytes.
func (w *PluginWriter) Uint16(v uint16) *PluginWriter {
	w.c.WriteUint16(binary.BigEndian, v)
	return w
}

// UTF writes s prefixed with its byte length.
// Strings longer than 65535 bytes fail the writer.
func (w *PluginWriter) UTF(s string) *PluginWriter {
	if len(s) > math.MaxUint16 {
		if w.err == nil {
			w.err = fmt.Errorf("string of %d bytes too long for plugin message", len(s))
		}
		return w
	}
	w.c.WriteUint16(binary.BigEndian, uint16(len(s)))
	w.c.WriteRaw([]byte(s))
	return w
}

// Raw writes b as is.
func (w *PluginWriter) Raw(b []byte) *PluginWriter {
	w.c.WriteRaw(b)
	return w
}

// Bytes returns the written data or the first error.
func (w *PluginWriter) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.c.Bytes(), nil
}

// PluginReader reads plugin message data written in the layout of PluginWriter.
type PluginReader struct {
	c *cursor.Cursor
}

// NewPluginReader returns a PluginReader of data.
func NewPluginReader(data []byte) *PluginReader {
	return &PluginReader{c: cursor.New(data)}
}

func (r *PluginReader) Byte() (byte, error) { return r.c.Uint8() }

func (r *PluginReader) Uint16() (uint16, error) { return r.c.Uint16(binary.BigEndian) }

func (r *PluginReader) Int32() (int32, error) { return r.c.Int32(binary.BigEndian) }

// UTF reads a string prefixed with its uint16 byte length.
func (r *PluginReader) UTF() (string, error) {
	n, err := r.c.Uint16(binary.BigEndian)
	if err != nil {
		return "", err
	}
	b, err := r.c.Raw(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Rest returns the unread data.
func (r *PluginReader) Rest() []byte { return r.c.Remaining() }
