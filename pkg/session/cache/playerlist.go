package cache

import (
	"sync"

	"go.minekube.com/bridge/pkg/skin"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// Player is an entry of the player list.
type Player struct {
	ProfileID uuid.UUID
	Name      string
	Textures  string // textures property, empty if unsigned/absent
	Listed    bool
	Latency   int32
	// Skin is nil until the textures are resolved.
	Skin *skin.Textures
}

// PlayerList caches the player list of a session.
type PlayerList struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*Player
}

// NewPlayerList returns an empty player list.
func NewPlayerList() *PlayerList {
	return &PlayerList{players: map[uuid.UUID]*Player{}}
}

// Put adds or replaces a player.
func (c *PlayerList) Put(p *Player) {
	c.mu.Lock()
	c.players[p.ProfileID] = p
	c.mu.Unlock()
}

// Get returns the player with the profile id.
func (c *PlayerList) Get(id uuid.UUID) (*Player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.players[id]
	return p, ok
}

// Update calls fn with the player with the profile id if present.
func (c *PlayerList) Update(id uuid.UUID, fn func(*Player)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.players[id]
	if ok {
		fn(p)
	}
	return ok
}

// Remove removes the player with the profile id.
func (c *PlayerList) Remove(id uuid.UUID) {
	c.mu.Lock()
	delete(c.players, id)
	c.mu.Unlock()
}

func (c *PlayerList) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.players)
}

// Clear removes all players.
func (c *PlayerList) Clear() {
	c.mu.Lock()
	clear(c.players)
	c.mu.Unlock()
}
