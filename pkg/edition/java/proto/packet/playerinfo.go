package packet

import (
	"encoding/binary"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/proto/cursor"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// PlayerInfoAction is a bit in the action set of a PlayerInfoUpdate.
type PlayerInfoAction uint8

// Player info actions in wire order.
const (
	AddPlayer PlayerInfoAction = 1 << iota
	InitializeChat
	UpdateGameMode
	UpdateListed
	UpdateLatency
	UpdateDisplayName
)

// Has reports whether all actions of o are in a.
func (a PlayerInfoAction) Has(o PlayerInfoAction) bool { return a&o == o }

// PlayerInfoUpdate adds or updates entries of the tab list.
type PlayerInfoUpdate struct {
	Actions PlayerInfoAction
	Entries []PlayerInfoEntry
}

// PlayerInfoEntry holds the fields of one player selected by the actions.
type PlayerInfoEntry struct {
	ProfileID uuid.UUID

	// AddPlayer
	Name       string
	Properties []ProfileProperty
	// InitializeChat
	ChatSession *RemoteChatSession
	// UpdateGameMode
	GameMode int32
	// UpdateListed
	Listed bool
	// UpdateLatency
	Latency int32
	// UpdateDisplayName, empty if absent
	DisplayName string
}

// RemoteChatSession is the chat signing session of a player.
type RemoteChatSession struct {
	ID           uuid.UUID
	ExpiresAt    int64
	PublicKey    []byte
	KeySignature []byte
}

func (*PlayerInfoUpdate) Kind() proto.Kind { return KindPlayerInfoUpdate }

var playerInfoUpdate = codec.Func(func(c *cursor.Cursor, p *PlayerInfoUpdate) {
	c.WriteUint8(uint8(p.Actions))
	cursor.WriteArray(c, p.Entries, func(c *cursor.Cursor, e PlayerInfoEntry) {
		writePlayerInfoEntry(c, p.Actions, e)
	})
}, func(c *cursor.Cursor) (p *PlayerInfoUpdate, err error) {
	defer cursor.Recover(&err)
	p = &PlayerInfoUpdate{Actions: PlayerInfoAction(cursor.Must(c.Uint8()))}
	p.Entries = cursor.Must(cursor.ReadArray(c, func(c *cursor.Cursor) (PlayerInfoEntry, error) {
		return readPlayerInfoEntry(c, p.Actions)
	}))
	return
})

func readPlayerInfoEntry(c *cursor.Cursor, a PlayerInfoAction) (e PlayerInfoEntry, err error) {
	defer cursor.Recover(&err)
	e.ProfileID = cursor.Must(readUUID(c))
	if a.Has(AddPlayer) {
		e.Name = cursor.Must(readString(c, maxUsernameLen))
		e.Properties = cursor.Must(cursor.ReadArray(c, readProperty))
	}
	if a.Has(InitializeChat) && cursor.Must(c.Bool()) {
		e.ChatSession = &RemoteChatSession{
			ID:           cursor.Must(readUUID(c)),
			ExpiresAt:    cursor.Must(c.Int64(binary.BigEndian)),
			PublicKey:    cursor.Must(c.ByteSlice()),
			KeySignature: cursor.Must(c.ByteSlice()),
		}
	}
	if a.Has(UpdateGameMode) {
		e.GameMode = cursor.Must(readVarInt(c))
	}
	if a.Has(UpdateListed) {
		e.Listed = cursor.Must(c.Bool())
	}
	if a.Has(UpdateLatency) {
		e.Latency = cursor.Must(readVarInt(c))
	}
	if a.Has(UpdateDisplayName) && cursor.Must(c.Bool()) {
		e.DisplayName = cursor.Must(readString(c, 262144))
	}
	return
}

func writePlayerInfoEntry(c *cursor.Cursor, a PlayerInfoAction, e PlayerInfoEntry) {
	writeUUID(c, e.ProfileID)
	if a.Has(AddPlayer) {
		c.WriteString(e.Name)
		cursor.WriteArray(c, e.Properties, writeProperty)
	}
	if a.Has(InitializeChat) {
		c.WriteBool(e.ChatSession != nil)
		if s := e.ChatSession; s != nil {
			writeUUID(c, s.ID)
			c.WriteInt64(binary.BigEndian, s.ExpiresAt)
			c.WriteByteSlice(s.PublicKey)
			c.WriteByteSlice(s.KeySignature)
		}
	}
	if a.Has(UpdateGameMode) {
		writeVarInt(c, e.GameMode)
	}
	if a.Has(UpdateListed) {
		c.WriteBool(e.Listed)
	}
	if a.Has(UpdateLatency) {
		writeVarInt(c, e.Latency)
	}
	if a.Has(UpdateDisplayName) {
		c.WriteBool(e.DisplayName != "")
		if e.DisplayName != "" {
			c.WriteString(e.DisplayName)
		}
	}
}

// Textures returns the value of the textures property, or false.
func (e *PlayerInfoEntry) Textures() (string, bool) {
	for _, p := range e.Properties {
		if p.Name == "textures" {
			return p.Value, true
		}
	}
	return "", false
}

// PlayerInfoRemove removes players from the tab list.
type PlayerInfoRemove struct {
	PlayerIDs []uuid.UUID
}

func (*PlayerInfoRemove) Kind() proto.Kind { return KindPlayerInfoRemove }

var playerInfoRemove = codec.Func(func(c *cursor.Cursor, p *PlayerInfoRemove) {
	cursor.WriteArray(c, p.PlayerIDs, writeUUID)
}, func(c *cursor.Cursor) (p *PlayerInfoRemove, err error) {
	p = new(PlayerInfoRemove)
	p.PlayerIDs, err = cursor.ReadArray(c, readUUID)
	return
})
