// Package cache contains the per session caches of the bridge.
//
// Caches are mutated by the session's task loop only, the locks
// guard against reads from other goroutines such as the session closing.
package cache

import (
	"sync"

	"go.uber.org/atomic"

	"go.minekube.com/bridge/pkg/internal/future"
	"go.minekube.com/bridge/pkg/skin"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// Position is the position of a block.
type Position struct {
	X, Y, Z int32
}

// Unresolved is the CustomRuntimeID of a skull without custom block.
const Unresolved int32 = -1

// Skull is a player head block.
type Skull struct {
	Position   Position
	BlockState int32 // Java block state of the head
	Owner      uuid.UUID
	OwnerName  string
	// CustomName is the custom block the skull displays, empty for player skulls.
	CustomName string
	// CustomRuntimeID is the Bedrock runtime id of the custom block or Unresolved.
	CustomRuntimeID int32
	// Textures is nil while the texture lookup is pending.
	Textures *future.Outcome[skin.Textures]
	// UniqueID identifies the block entity of the skull.
	UniqueID int64
}

// sameOwner reports whether s and o display the same head.
func (s *Skull) sameOwner(o *Skull) bool {
	return s.Owner == o.Owner && s.OwnerName == o.OwnerName && s.CustomName == o.CustomName
}

var uniqueIDs atomic.Int64

// NextUniqueID returns a new block entity unique id.
// Ids are sequential and unique within the process.
func NextUniqueID() int64 { return uniqueIDs.Inc() }

// Skulls caches the skulls of a session by position.
//
// It also remembers the block states of skull blocks whose
// block entity has not been received yet.
type Skulls struct {
	mu     sync.RWMutex
	m      map[Position]*Skull
	states map[Position]int32
}

// NewSkulls returns an empty skull cache.
func NewSkulls() *Skulls {
	return &Skulls{m: map[Position]*Skull{}, states: map[Position]int32{}}
}

// SetState records the Java block state of the skull block at pos.
func (c *Skulls) SetState(pos Position, state int32) {
	c.mu.Lock()
	c.states[pos] = state
	if s, ok := c.m[pos]; ok {
		s.BlockState = state
	}
	c.mu.Unlock()
}

// State returns the recorded block state at pos.
func (c *Skulls) State(pos Position) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[pos]
	return state, ok
}

// Put replaces the skull at s.Position with s and returns the previous skull.
// s keeps the unique id of the previous skull if both show the same owner,
// otherwise it is assigned a new one.
func (c *Skulls) Put(s *Skull) (prev *Skull) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev = c.m[s.Position]
	if prev != nil && prev.sameOwner(s) {
		s.UniqueID = prev.UniqueID
	} else {
		s.UniqueID = NextUniqueID()
	}
	c.m[s.Position] = s
	return prev
}

// Get returns the skull at pos.
func (c *Skulls) Get(pos Position) (*Skull, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.m[pos]
	return s, ok
}

// Remove removes and returns the skull at pos.
// The block state at pos is kept, see Forget.
func (c *Skulls) Remove(pos Position) (*Skull, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.m[pos]
	delete(c.m, pos)
	return s, ok
}

// Forget removes the skull and the block state at pos.
func (c *Skulls) Forget(pos Position) {
	c.mu.Lock()
	delete(c.m, pos)
	delete(c.states, pos)
	c.mu.Unlock()
}

func (c *Skulls) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Clear removes all skulls.
func (c *Skulls) Clear() {
	c.mu.Lock()
	clear(c.m)
	clear(c.states)
	c.mu.Unlock()
}
