package packet

import (
	"encoding/binary"
	"errors"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// Handshake next states.
const (
	HandshakeStatus int32 = 1
	HandshakeLogin  int32 = 2
)

// https://wiki.vg/Protocol#Handshaking
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	Port            uint16
	NextStatus      int32
}

func (*Handshake) Kind() proto.Kind { return KindHandshake }

var handshake = codec.Func(func(c *cursor.Cursor, h *Handshake) {
	writeVarInt(c, h.ProtocolVersion)
	c.WriteString(h.ServerAddress)
	c.WriteUint16(binary.BigEndian, h.Port)
	writeVarInt(c, h.NextStatus)
}, func(c *cursor.Cursor) (h *Handshake, err error) {
	defer cursor.Recover(&err)
	h = &Handshake{
		ProtocolVersion: cursor.Must(readVarInt(c)),
		ServerAddress:   cursor.Must(readString(c, 255)),
		Port:            cursor.Must(c.Uint16(binary.BigEndian)),
		NextStatus:      cursor.Must(readVarInt(c)),
	}
	return
})

const maxUsernameLen = 16

var errEmptyUsername = errors.New("empty username")

// LoginStart starts the login of a player.
type LoginStart struct {
	Username string
	// HolderID is sent if not Nil.
	HolderID uuid.UUID
}

func (*LoginStart) Kind() proto.Kind { return KindLoginStart }

var loginStart = codec.Func(func(c *cursor.Cursor, s *LoginStart) {
	c.WriteString(s.Username)
	c.WriteBool(s.HolderID != uuid.Nil)
	if s.HolderID != uuid.Nil {
		writeUUID(c, s.HolderID)
	}
}, func(c *cursor.Cursor) (s *LoginStart, err error) {
	defer cursor.Recover(&err)
	s = &LoginStart{Username: cursor.Must(readString(c, maxUsernameLen))}
	if s.Username == "" {
		return nil, errEmptyUsername
	}
	if cursor.Must(c.Bool()) {
		s.HolderID = cursor.Must(readUUID(c))
	}
	return
})

// LoginDisconnect kicks a player during login.
type LoginDisconnect struct {
	Reason string // json text component
}

func (*LoginDisconnect) Kind() proto.Kind { return KindLoginDisconnect }

var loginDisconnect = codec.Func(func(c *cursor.Cursor, d *LoginDisconnect) {
	c.WriteString(d.Reason)
}, func(c *cursor.Cursor) (*LoginDisconnect, error) {
	s, err := readString(c, 262144)
	return &LoginDisconnect{Reason: s}, err
})

// ProfileProperty is a signed property of a game profile, e.g. its textures.
type ProfileProperty struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"` // empty if unsigned
}

func readProperty(c *cursor.Cursor) (p ProfileProperty, err error) {
	defer cursor.Recover(&err)
	p.Name = cursor.Must(readString(c, 0))
	p.Value = cursor.Must(readString(c, 0))
	if cursor.Must(c.Bool()) {
		p.Signature = cursor.Must(readString(c, 0))
	}
	return
}

func writeProperty(c *cursor.Cursor, p ProfileProperty) {
	c.WriteString(p.Name)
	c.WriteString(p.Value)
	c.WriteBool(p.Signature != "")
	if p.Signature != "" {
		c.WriteString(p.Signature)
	}
}

// LoginSuccess completes the login and switches to the play state.
type LoginSuccess struct {
	UUID       uuid.UUID
	Username   string
	Properties []ProfileProperty
}

func (*LoginSuccess) Kind() proto.Kind { return KindLoginSuccess }

var loginSuccess = codec.Func(func(c *cursor.Cursor, l *LoginSuccess) {
	writeUUID(c, l.UUID)
	c.WriteString(l.Username)
	cursor.WriteArray(c, l.Properties, writeProperty)
}, func(c *cursor.Cursor) (l *LoginSuccess, err error) {
	defer cursor.Recover(&err)
	l = &LoginSuccess{
		UUID:       cursor.Must(readUUID(c)),
		Username:   cursor.Must(readString(c, maxUsernameLen)),
		Properties: cursor.Must(cursor.ReadArray(c, readProperty)),
	}
	return
})

// SetCompression enables compression for all following packets.
type SetCompression struct {
	Threshold int32
}

func (*SetCompression) Kind() proto.Kind { return KindSetCompression }

var setCompression = codec.Func(func(c *cursor.Cursor, s *SetCompression) {
	writeVarInt(c, s.Threshold)
}, func(c *cursor.Cursor) (s *SetCompression, err error) {
	s = new(SetCompression)
	s.Threshold, err = readVarInt(c)
	return
})

// LoginPluginRequest is a custom query of the server during login,
// e.g. for modern player info forwarding.
type LoginPluginRequest struct {
	MessageID int32
	Channel   string
	Data      []byte
}

func (*LoginPluginRequest) Kind() proto.Kind { return KindLoginPluginRequest }

var loginPluginRequest = codec.Func(func(c *cursor.Cursor, r *LoginPluginRequest) {
	writeVarInt(c, r.MessageID)
	c.WriteString(r.Channel)
	c.WriteRaw(r.Data)
}, func(c *cursor.Cursor) (r *LoginPluginRequest, err error) {
	defer cursor.Recover(&err)
	r = &LoginPluginRequest{
		MessageID: cursor.Must(readVarInt(c)),
		Channel:   cursor.Must(readString(c, 0)),
	}
	r.Data = cursor.Must(c.Raw(c.Len()))
	return
})

// LoginPluginResponse answers a LoginPluginRequest.
// A response that is not Successful tells the server the query is not understood.
type LoginPluginResponse struct {
	MessageID  int32
	Successful bool
	Data       []byte
}

func (*LoginPluginResponse) Kind() proto.Kind { return KindLoginPluginResponse }

var loginPluginResponse = codec.Func(func(c *cursor.Cursor, r *LoginPluginResponse) {
	writeVarInt(c, r.MessageID)
	c.WriteBool(r.Successful)
	c.WriteRaw(r.Data)
}, func(c *cursor.Cursor) (r *LoginPluginResponse, err error) {
	defer cursor.Recover(&err)
	r = &LoginPluginResponse{
		MessageID:  cursor.Must(readVarInt(c)),
		Successful: cursor.Must(c.Bool()),
	}
	r.Data = cursor.Must(c.Raw(c.Len()))
	return
})
