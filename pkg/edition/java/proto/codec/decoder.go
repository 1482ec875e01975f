// Package codec reads and writes Java edition packet frames with optional
// zlib compression.
package codec

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"

	"go.minekube.com/bridge/pkg/edition/java/proto/state"
	"go.minekube.com/bridge/pkg/edition/java/proto/version"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/util/errs"
)

const (
	VanillaMaximumUncompressedSize = 8 * 1024 * 1024 // 8MiB
	UncompressedCap                = VanillaMaximumUncompressedSize

	maxFrameLength = 1 << 21
)

// Decoder is a synchronized packet decoder
// for the Minecraft Java edition.
type Decoder struct {
	log       logr.Logger
	direction proto.Direction

	mu                   sync.Mutex    // Protects following fields and locked while reading a packet.
	rd                   *bufio.Reader // The underlying reader.
	state                *state.Registry
	protocol             proto.Protocol
	dec                  *codec.Decoder
	compression          bool
	compressionThreshold int
	zrd                  io.ReadCloser
}

// NewDecoder returns a Decoder in the handshake state of the default protocol.
func NewDecoder(r io.Reader, direction proto.Direction, log logr.Logger) *Decoder {
	d := &Decoder{
		rd:        bufio.NewReader(r),
		direction: direction,
		log:       log.WithName("decoder"),
	}
	if err := d.set(state.Handshake, version.Default.Protocol); err != nil {
		panic(err) // the default protocol is always supported
	}
	return d
}

// SetState switches the connection state.
func (d *Decoder) SetState(s *state.Registry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.set(s, d.protocol)
}

// SetProtocol switches the protocol version.
func (d *Decoder) SetProtocol(p proto.Protocol) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.set(d.state, p)
}

func (d *Decoder) set(s *state.Registry, p proto.Protocol) error {
	b := s.Bound(d.direction)
	t, err := b.Resolve(p)
	if err != nil {
		return err
	}
	d.state, d.protocol = s, p
	d.dec = codec.NewDecoder(t, b.Header, d.direction, d.log)
	return nil
}

// SetCompressionThreshold enables compression if threshold is not negative.
func (d *Decoder) SetCompressionThreshold(threshold int) {
	d.mu.Lock()
	d.compressionThreshold = threshold
	d.compression = threshold >= 0
	d.mu.Unlock()
}

// Decode reads the next packet from the underlying reader.
// It blocks other calls to Decode until return.
//
// Packets of unknown kinds are returned with a nil Packet so they can be forwarded as is.
// As in codec.Decoder, ErrDecoderLeftBytes is returned along with the decoded packet.
// Errors decoding the packet of a completely read frame are returned with a non-nil
// PacketContext, errors reading the frame itself with a nil one.
func (d *Decoder) Decode() (ctx *proto.PacketContext, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var retries int
	for {
		payload, err := d.readPayload()
		if err != nil {
			return nil, errs.WrapSilent(err)
		}
		if len(payload) != 0 {
			ctx, err = d.dec.Decode(payload)
			if errors.Is(err, proto.ErrUnknownPacketKind) {
				return ctx, nil
			}
			return ctx, err
		}
		if retries > 10 {
			return nil, errors.New("got too many empty packets")
		}
		retries++
		// Got an empty packet, skipping it
	}
}

// can eventually receive an empty payload which packet should be skipped
func (d *Decoder) readPayload() ([]byte, error) {
	payload, err := readVarIntFrame(d.rd)
	if err != nil {
		return nil, fmt.Errorf("error reading packet frame: %w", err)
	}
	if len(payload) == 0 || !d.compression {
		return payload, nil
	}
	// payload contains: claimedUncompressedSize + (compressed packet id & data)
	buf := bytes.NewReader(payload)
	claimedUncompressedSize, err := binary.ReadUvarint(buf)
	if err != nil {
		return nil, fmt.Errorf("error reading claimed uncompressed size varint: %w", err)
	}
	if claimedUncompressedSize == 0 {
		if actualUncompressedSize := buf.Len(); actualUncompressedSize > d.compressionThreshold {
			return nil, fmt.Errorf("actual uncompressed size %d is greater than threshold %d",
				actualUncompressedSize, d.compressionThreshold)
		}
		// This message is not compressed
		return payload[len(payload)-buf.Len():], nil
	}
	return d.decompress(int(claimedUncompressedSize), buf)
}

func readVarIntFrame(rd *bufio.Reader) ([]byte, error) {
	length, err := binary.ReadUvarint(rd)
	if err != nil {
		return nil, fmt.Errorf("error reading varint: %w", err)
	}
	if length > maxFrameLength {
		return nil, fmt.Errorf("received invalid packet length %d", length)
	}
	payload := make([]byte, length)
	if _, err = io.ReadFull(rd, payload); err != nil {
		return nil, fmt.Errorf("error reading payload: %w", err)
	}
	return payload, nil
}

func (d *Decoder) decompress(claimedUncompressedSize int, rd io.Reader) (decompressed []byte, err error) {
	if claimedUncompressedSize < d.compressionThreshold {
		return nil, errs.NewSilentErr("uncompressed size %d is less than set threshold %d",
			claimedUncompressedSize, d.compressionThreshold)
	}
	if claimedUncompressedSize > UncompressedCap {
		return nil, errs.NewSilentErr("uncompressed size %d exceeds hard threshold of %d",
			claimedUncompressedSize, UncompressedCap)
	}

	if d.zrd == nil {
		d.zrd, err = zlib.NewReader(rd)
		if err != nil {
			return nil, err
		}
	} else {
		// Reuse already allocated zlib reader
		if err = d.zrd.(zlib.Resetter).Reset(rd, nil); err != nil {
			return nil, fmt.Errorf("error reseting zlib reader: %w", err)
		}
	}

	decompressed = make([]byte, claimedUncompressedSize)
	if _, err = io.ReadFull(d.zrd, decompressed); err != nil {
		return nil, fmt.Errorf("error decompressing payload: %w", err)
	}
	return decompressed, d.zrd.Close()
}
