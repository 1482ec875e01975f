// Package proto holds the edition agnostic building blocks of the packet layer:
// protocol versions, packet kinds, the packet contract and the error kinds every codec
// and translator reports with.
package proto

import (
	"fmt"
	"reflect"
	"strconv"
)

// Packet is a decoded packet of a Minecraft edition.
//
// A Packet only carries data. How it is laid out on the wire for a given protocol
// version is owned by the codec.Codec registered for its Kind, so the same Packet
// type can be shared by every protocol version that sends it.
type Packet interface {
	// Kind returns the edition specific discriminator of the packet.
	Kind() Kind
}

// Kind identifies which wire-format record a byte sequence represents.
// Kinds are unique per edition and direction-independent.
type Kind uint32

// String implements fmt.Stringer.
func (k Kind) String() string {
	return fmt.Sprintf("%#x", uint32(k))
}

// PacketContext carries context information for a
// received packet or packet that is about to be sent.
type PacketContext struct {
	Direction Direction // The direction the packet is bound to.
	Protocol  Protocol  // The protocol version of the packet.
	Kind      Kind      // The kind of the packet, is always set.

	// Is the decoded packet found by Kind in the session's resolved codec table.
	// Otherwise, nil, the Kind is unknown and KnownPacket is false.
	Packet Packet

	// The raw frame payload including the header.
	// It is owned by the receiver of this context and never shared between two contexts.
	Payload []byte

	// Size is the declared frame length.
	Size int
}

// KnownPacket indicated whether the Kind is known in the session's codec table.
func (c *PacketContext) KnownPacket() bool {
	return c != nil && c.Packet != nil
}

// String implements fmt.Stringer.
func (c *PacketContext) String() string {
	return fmt.Sprintf("PacketContext:direction=%s,protocol=%s,"+
		"knownPacket=%t,kind=%s,packetType=%s,size=%d",
		c.Direction, c.Protocol, c.KnownPacket(), c.Kind,
		reflect.TypeOf(c.Packet), c.Size)
}

// Direction is the direction a packet is bound to.
//   - Receiving a packet from a Bedrock client is ServerBound.
//   - Receiving a packet from the Java server is ClientBound.
//   - Sending a packet to a Bedrock client is ClientBound.
//   - Sending a packet to the Java server is ServerBound.
type Direction uint8

// Available packet bound directions.
const (
	ClientBound Direction = iota // A packet is bound to a client.
	ServerBound                  // A packet is bound to a server.
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case ServerBound:
		return "ServerBound"
	case ClientBound:
		return "ClientBound"
	}
	return "UnknownBound"
}

// Version is a named protocol version.
type Version struct {
	Protocol          // The protocol number of the version.
	Names    []string // The names in this protocol version (at least one).
}

// FirstName returns the user-friendly name of
// the version this protocol was introduced in.
func (v *Version) FirstName() string {
	if len(v.Names) == 0 {
		return ""
	}
	return v.Names[0]
}

// LastName returns the user-friendly name of
// the last version of this protocol.
func (v *Version) LastName() string {
	if len(v.Names) == 0 {
		return ""
	}
	return v.Names[len(v.Names)-1]
}

// String returns the user-friendly name of this protocol version.
// If this version has multiple names it returns {first}-{last} version.
func (v Version) String() string {
	if len(v.Names) > 1 {
		return fmt.Sprintf("%s-%s", v.FirstName(), v.LastName())
	}
	return v.FirstName()
}

// Protocol is an ordered, edition specific protocol version id.
type Protocol int

// String implements fmt.Stringer.
func (p Protocol) String() string {
	return strconv.Itoa(int(p))
}

// GreaterEqual is true when this Protocol is
// greater or equal then another Version's Protocol.
func (p Protocol) GreaterEqual(then *Version) bool {
	return p >= then.Protocol
}

// Lower is true when this Protocol is
// lower then another Version's Protocol.
func (p Protocol) Lower(then *Version) bool {
	return p < then.Protocol
}

// Greater is true when this Protocol is
// greater then another Version's Protocol.
func (p Protocol) Greater(then *Version) bool {
	return p > then.Protocol
}

// PacketType is the non-pointer reflect.Type of a packet.
// Use TypeOf helper function to for convenience.
type PacketType reflect.Type

// TypeOf returns a non-pointer type of p.
func TypeOf(p Packet) PacketType {
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
