package packet

import (
	"encoding/binary"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
)

// RequestNetworkSettings is the first packet a client sends on 1.19.30 and later.
// It is never compressed.
type RequestNetworkSettings struct {
	ClientProtocol int32
}

func (*RequestNetworkSettings) Kind() proto.Kind { return IDRequestNetworkSettings }

var requestNetworkSettings = codec.Func(func(c *cursor.Cursor, p *RequestNetworkSettings) {
	c.WriteInt32(binary.BigEndian, p.ClientProtocol)
}, func(c *cursor.Cursor) (p *RequestNetworkSettings, err error) {
	p = new(RequestNetworkSettings)
	p.ClientProtocol, err = c.Int32(binary.BigEndian)
	return
})

// Compression algorithms announced in NetworkSettings.
const (
	CompressionFlate  uint16 = 0
	CompressionSnappy uint16 = 1
)

// NetworkSettings tells the client the compression settings used from now on.
type NetworkSettings struct {
	CompressionThreshold uint16
	// Fields below exist since 1.19.30.
	CompressionAlgorithm    uint16
	ClientThrottle          bool
	ClientThrottleThreshold uint8
	ClientThrottleScalar    float32
}

func (*NetworkSettings) Kind() proto.Kind { return IDNetworkSettings }

func readNetworkSettingsBase(r *cursor.PReader, p *NetworkSettings) {
	r.Uint16(binary.LittleEndian, &p.CompressionThreshold)
}

func writeNetworkSettingsBase(c *cursor.Cursor, p *NetworkSettings) {
	c.WriteUint16(binary.LittleEndian, p.CompressionThreshold)
}

var networkSettings407 = codec.Func(writeNetworkSettingsBase,
	func(c *cursor.Cursor) (p *NetworkSettings, err error) {
		defer cursor.Recover(&err)
		p = new(NetworkSettings)
		readNetworkSettingsBase(cursor.PanicReader(c), p)
		return
	})

var networkSettings554 = codec.Func(func(c *cursor.Cursor, p *NetworkSettings) {
	writeNetworkSettingsBase(c, p)
	c.WriteUint16(binary.LittleEndian, p.CompressionAlgorithm)
	c.WriteBool(p.ClientThrottle)
	c.WriteUint8(p.ClientThrottleThreshold)
	c.WriteFloat32(binary.LittleEndian, p.ClientThrottleScalar)
}, func(c *cursor.Cursor) (p *NetworkSettings, err error) {
	defer cursor.Recover(&err)
	p = new(NetworkSettings)
	r := cursor.PanicReader(c)
	readNetworkSettingsBase(r, p)
	r.Uint16(binary.LittleEndian, &p.CompressionAlgorithm)
	r.Bool(&p.ClientThrottle)
	r.Uint8(&p.ClientThrottleThreshold)
	r.Float32(binary.LittleEndian, &p.ClientThrottleScalar)
	return
})

// Login carries the client's protocol and its signed identity chain.
type Login struct {
	ClientProtocol int32
	// ConnectionRequest holds the length-prefixed chain and client data tokens.
	ConnectionRequest []byte
}

func (*Login) Kind() proto.Kind { return IDLogin }

var login = codec.Func(func(c *cursor.Cursor, p *Login) {
	c.WriteInt32(binary.BigEndian, p.ClientProtocol)
	c.WriteByteSlice(p.ConnectionRequest)
}, func(c *cursor.Cursor) (p *Login, err error) {
	defer cursor.Recover(&err)
	p = new(Login)
	r := cursor.PanicReader(c)
	r.Int32(binary.BigEndian, &p.ClientProtocol)
	r.ByteSlice(&p.ConnectionRequest)
	return
})

// PlayStatus values.
const (
	PlayStatusLoginSuccess int32 = iota
	PlayStatusLoginFailedClient
	PlayStatusLoginFailedServer
	PlayStatusPlayerSpawn
)

// PlayStatus reports the login outcome and spawn to the client.
type PlayStatus struct {
	Status int32
}

func (*PlayStatus) Kind() proto.Kind { return IDPlayStatus }

var playStatus = codec.Func(func(c *cursor.Cursor, p *PlayStatus) {
	c.WriteInt32(binary.BigEndian, p.Status)
}, func(c *cursor.Cursor) (p *PlayStatus, err error) {
	p = new(PlayStatus)
	p.Status, err = c.Int32(binary.BigEndian)
	return
})

// Disconnect kicks the client with an optional message.
type Disconnect struct {
	HideDisconnectionScreen bool
	Message                 string
}

func (*Disconnect) Kind() proto.Kind { return IDDisconnect }

var disconnect = codec.Func(func(c *cursor.Cursor, p *Disconnect) {
	c.WriteBool(p.HideDisconnectionScreen)
	if !p.HideDisconnectionScreen {
		c.WriteString(p.Message)
	}
}, func(c *cursor.Cursor) (p *Disconnect, err error) {
	defer cursor.Recover(&err)
	p = new(Disconnect)
	r := cursor.PanicReader(c)
	r.Bool(&p.HideDisconnectionScreen)
	if !p.HideDisconnectionScreen {
		r.String(&p.Message)
	}
	return
})
