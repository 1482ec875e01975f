package proto

import (
	"errors"
	"fmt"
)

// Error kinds reported by the packet layer.
// Use errors.Is to classify an error returned by a codec, registry or translator.
var (
	// ErrTruncated is returned when a read runs past the end of a buffer.
	// Decoding of the packet is aborted, the connection continues.
	ErrTruncated = errors.New("truncated")
	// ErrUnknownPacketKind is reported when a frame carries a kind that has no codec.
	// The frame is skipped using its declared length.
	ErrUnknownPacketKind = errors.New("unknown packet kind")
	// ErrUnresolvedVersion is a configuration error detected while building a codec
	// registry: a packet kind has no definition for a supported protocol version.
	ErrUnresolvedVersion = errors.New("unresolved protocol version")
	// ErrLookupFailed is the outcome of an asynchronous lookup that did not produce a
	// usable result.
	ErrLookupFailed = errors.New("lookup failed")
	// ErrProtocolViolation marks a structurally impossible packet.
	// It is the only error kind that closes a session.
	ErrProtocolViolation = errors.New("protocol violation")
)

// ErrDecoderLeftBytes indicates a packet was known and successfully decoded by its codec,
// but the codec has not read all the packet's bytes.
var ErrDecoderLeftBytes = errors.New("decoder did not read all bytes of packet")

// Violationf returns an error wrapping ErrProtocolViolation.
func Violationf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, a...))
}

// IsFatal reports whether err must close the session it occurred in.
func IsFatal(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}
