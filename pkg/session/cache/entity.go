package cache

import (
	"sync"

	"go.uber.org/atomic"

	"go.minekube.com/bridge/pkg/util/uuid"
)

// Entity maps a Java entity to its Bedrock runtime id.
type Entity struct {
	JavaID    int32
	RuntimeID uint64
	UUID      uuid.UUID
}

// Entities caches the entities known to a session.
type Entities struct {
	nextRuntimeID atomic.Uint64

	mu     sync.RWMutex
	byJava map[int32]*Entity
}

// NewEntities returns an empty entity cache.
func NewEntities() *Entities {
	return &Entities{byJava: map[int32]*Entity{}}
}

// NextRuntimeID allocates a Bedrock runtime id. The first id is 1.
func (c *Entities) NextRuntimeID() uint64 { return c.nextRuntimeID.Inc() }

// Spawn allocates a runtime id for the Java entity and caches it.
func (c *Entities) Spawn(javaID int32, id uuid.UUID) *Entity {
	e := &Entity{JavaID: javaID, RuntimeID: c.NextRuntimeID(), UUID: id}
	c.mu.Lock()
	c.byJava[javaID] = e
	c.mu.Unlock()
	return e
}

// ByJavaID returns the entity with the Java entity id.
func (c *Entities) ByJavaID(javaID int32) (*Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byJava[javaID]
	return e, ok
}

// Remove removes the entity with the Java entity id.
func (c *Entities) Remove(javaID int32) {
	c.mu.Lock()
	delete(c.byJava, javaID)
	c.mu.Unlock()
}

// Clear removes all entities. Runtime ids are not reused.
func (c *Entities) Clear() {
	c.mu.Lock()
	clear(c.byJava)
	c.mu.Unlock()
}
