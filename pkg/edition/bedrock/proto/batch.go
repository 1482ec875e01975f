package proto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gammazero/deque"
	"github.com/go-logr/logr"
	"github.com/klauspost/compress/flate"
	"go.uber.org/atomic"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// batchHeader is the RakNet message id of a game packet batch.
const batchHeader = 0xfe

// MaxQueuedPackets is the number of decoded but not yet consumed packets after which
// a Decoder gives up on a client.
const MaxQueuedPackets = 1000

// DefaultMaxDecompressedLen is the largest decompressed batch a Decoder accepts.
const DefaultMaxDecompressedLen = 16 << 20

var (
	ErrNotBatch         = errors.New("not a game packet batch")
	ErrQueueFull        = fmt.Errorf("%d+ unhandled packets in queue, Decode caller is to slow", MaxQueuedPackets)
	ErrBatchTooLarge    = errors.New("decompressed batch exceeds limit")
	errEmptyBatchPacket = errors.New("empty batch packet")
)

// PacketReader reads whole RakNet messages.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// Decoder reads game packet batches from a RakNet connection and decodes
// the packets they contain one at a time.
type Decoder struct {
	r          PacketReader
	dec        *codec.Decoder
	log        logr.Logger
	compressed atomic.Bool

	MaxDecompressedLen int

	// decoded packets not yet returned by Decode
	queue deque.Deque[*proto.PacketContext]
}

// NewDecoder returns a new Decoder reading batches from r with the codec table t.
func NewDecoder(r PacketReader, t *codec.Table, direction proto.Direction, log logr.Logger) *Decoder {
	return &Decoder{
		r:                  r,
		dec:                codec.NewDecoder(t, new(Header), direction, log),
		log:                log,
		MaxDecompressedLen: DefaultMaxDecompressedLen,
	}
}

// EnableCompression makes the Decoder inflate every following batch.
func (d *Decoder) EnableCompression() { d.compressed.Store(true) }

// SetTable switches the codec table after version negotiation.
func (d *Decoder) SetTable(t *codec.Table) { d.dec.SetTable(t) }

// Decode returns the next packet. Unknown packets are skipped.
func (d *Decoder) Decode() (*proto.PacketContext, error) {
	for d.queue.Len() == 0 {
		if err := d.fillQueue(); err != nil {
			return nil, err
		}
	}
	return d.queue.PopFront(), nil
}

func (d *Decoder) fillQueue() error {
	b, err := d.r.ReadPacket()
	if err != nil {
		return err
	}
	stream, err := d.unwrap(b)
	if err != nil {
		return err
	}
	return d.dec.DecodeStream(stream, func(ctx *proto.PacketContext) error {
		// Error out if we get too many packets and the caller can't keep up.
		if d.queue.Len() >= MaxQueuedPackets {
			d.queue.Clear()
			return ErrQueueFull
		}
		d.queue.PushBack(ctx)
		return nil
	})
}

func (d *Decoder) unwrap(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errEmptyBatchPacket
	}
	if b[0] != batchHeader {
		return nil, fmt.Errorf("%w: message id %#x", ErrNotBatch, b[0])
	}
	b = b[1:]
	if !d.compressed.Load() {
		return b, nil
	}
	fr := flate.NewReader(bytes.NewReader(b))
	defer fr.Close()
	out, err := io.ReadAll(io.LimitReader(fr, int64(d.MaxDecompressedLen)+1))
	if err != nil {
		return nil, proto.Violationf("error inflating batch: %v", err)
	}
	if len(out) > d.MaxDecompressedLen {
		return nil, fmt.Errorf("%w of %d bytes", ErrBatchTooLarge, d.MaxDecompressedLen)
	}
	return out, nil
}

// Encoder encodes packets into game packet batches written to a RakNet connection.
// It is safe for concurrent use.
type Encoder struct {
	mu         sync.Mutex
	w          io.Writer
	enc        *codec.Encoder
	compressed atomic.Bool
	fw         *flate.Writer
}

// NewEncoder returns a new Encoder writing batches to w with the codec table t.
func NewEncoder(w io.Writer, t *codec.Table) *Encoder {
	return &Encoder{w: w, enc: codec.NewEncoder(t, new(Header))}
}

// EnableCompression makes the Encoder deflate every following batch.
func (e *Encoder) EnableCompression() { e.compressed.Store(true) }

// SetTable switches the codec table after version negotiation.
func (e *Encoder) SetTable(t *codec.Table) { e.enc.SetTable(t) }

// Table returns the current codec table.
func (e *Encoder) Table() *codec.Table { return e.enc.Table() }

// Encode writes all packets as one batch.
func (e *Encoder) Encode(pks ...proto.Packet) error {
	if len(pks) == 0 {
		return nil
	}
	stream := cursor.NewWriter(256)
	for _, p := range pks {
		if err := e.enc.AppendFrame(stream, p); err != nil {
			return err
		}
	}
	return e.WriteStream(stream.Bytes())
}

// WriteStream writes already framed packets as one batch.
func (e *Encoder) WriteStream(stream []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf := bytes.NewBuffer(make([]byte, 0, len(stream)+1))
	buf.WriteByte(batchHeader)
	if e.compressed.Load() {
		if e.fw == nil {
			var err error
			if e.fw, err = flate.NewWriter(buf, flate.DefaultCompression); err != nil {
				return err
			}
		} else {
			e.fw.Reset(buf)
		}
		if _, err := e.fw.Write(stream); err != nil {
			return fmt.Errorf("error deflating batch: %w", err)
		}
		if err := e.fw.Close(); err != nil {
			return fmt.Errorf("error deflating batch: %w", err)
		}
	} else {
		buf.Write(stream)
	}
	_, err := e.w.Write(buf.Bytes())
	return err
}
