package codec

import (
	"bytes"
	"compress/zlib"
	"io"
	"sync"

	"github.com/go-logr/logr"

	"go.minekube.com/bridge/pkg/edition/java/proto/state"
	"go.minekube.com/bridge/pkg/edition/java/proto/version"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// Encoder is a synchronized packet encoder.
type Encoder struct {
	direction proto.Direction
	log       logr.Logger

	mu          sync.Mutex // Protects following fields
	wr          io.Writer  // the underlying writer to write successfully encoded packets to
	state       *state.Registry
	protocol    proto.Protocol
	enc         *codec.Encoder
	compression struct {
		enabled   bool
		threshold int // No compression if <= 0
		writer    *zlib.Writer
	}
}

// NewEncoder returns an Encoder in the handshake state of the default protocol.
func NewEncoder(w io.Writer, direction proto.Direction, log logr.Logger) *Encoder {
	e := &Encoder{
		log:       log.WithName("encoder"),
		wr:        w,
		direction: direction,
	}
	if err := e.set(state.Handshake, version.Default.Protocol); err != nil {
		panic(err) // the default protocol is always supported
	}
	return e
}

// Direction returns the encoder's direction.
func (e *Encoder) Direction() proto.Direction {
	return e.direction
}

// SetState switches the connection state.
func (e *Encoder) SetState(s *state.Registry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set(s, e.protocol)
}

// SetProtocol switches the protocol version.
func (e *Encoder) SetProtocol(p proto.Protocol) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set(e.state, p)
}

func (e *Encoder) set(s *state.Registry, p proto.Protocol) error {
	b := s.Bound(e.direction)
	t, err := b.Resolve(p)
	if err != nil {
		return err
	}
	e.state, e.protocol = s, p
	e.enc = codec.NewEncoder(t, b.Header)
	return nil
}

// SetCompression enables compression of packets of at least threshold bytes.
// A negative threshold disables compression.
func (e *Encoder) SetCompression(threshold, level int) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compression.threshold = threshold
	e.compression.enabled = threshold >= 0
	if e.compression.enabled {
		e.compression.writer, err = zlib.NewWriterLevel(e.wr, level)
	}
	return
}

// WritePacket encodes and writes one packet.
func (e *Encoder) WritePacket(packet proto.Packet) (n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	payload, err := e.enc.Encode(packet) // packet id + data
	if err != nil {
		return 0, err
	}
	if e.log.V(2).Enabled() {
		e.log.V(2).Info("encoded packet", "type", packet, "state", e.state, "bytes", len(payload))
	}
	return e.writeBuf(payload)
}

// Write writes payload as one packet.
// The payload must not already be compressed and must
// start with the packet's id VarInt and then the packet's data.
func (e *Encoder) Write(payload []byte) (n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeBuf(payload)
}

// see https://wiki.vg/Protocol#Packet_format for details
func (e *Encoder) writeBuf(payload []byte) (n int, err error) {
	frame := cursor.NewWriter(len(payload) + 8)
	switch {
	case !e.compression.enabled:
		frame.WriteByteSlice(payload)
	case len(payload) < e.compression.threshold:
		// Under the threshold, there is nothing to do.
		frame.WriteVaruint32(uint32(len(payload) + 1)) // packet length
		frame.WriteUint8(0)                            // indicate not compressed
		frame.WriteRaw(payload)
	default:
		// >= threshold, compress packet id + data
		body := cursor.NewWriter(len(payload)/2 + 8)
		body.WriteVaruint32(uint32(len(payload))) // data length
		compressed, err := e.compress(payload)
		if err != nil {
			return 0, err
		}
		body.WriteRaw(compressed)
		frame.WriteByteSlice(body.Bytes())
	}
	return e.wr.Write(frame.Bytes())
}

func (e *Encoder) compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	e.compression.writer.Reset(&buf)
	if _, err := e.compression.writer.Write(payload); err != nil {
		return nil, err
	}
	if err := e.compression.writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
