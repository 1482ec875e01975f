package java

import (
	"go.minekube.com/bridge/pkg/blocks"
	bpacket "go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/internal/future"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/session/cache"
	"go.minekube.com/bridge/pkg/skin"
	"go.minekube.com/bridge/pkg/util/uuid"
)

func position(p packet.BlockPos) cache.Position {
	return cache.Position{X: p.X, Y: p.Y, Z: p.Z}
}

func (t *translators) blockEntityData(s *session.Session, p *packet.BlockEntityData) error {
	if p.Type != packet.BlockEntitySkull {
		return nil
	}
	t.translateSkull(s, position(p.Position), p.Data)
	return nil
}

// translateSkull caches the skull at pos and displays the custom block it resolves to.
//
// A skull naming a custom block is resolved by that name without texture lookup.
// Other skulls are resolved by the skin hash of their owner's textures.
// A skull without owner is removed from the cache.
func (t *translators) translateSkull(s *session.Session, pos cache.Position, tag map[string]any) {
	state, _ := s.Skulls.State(pos)
	if name, ok := blocks.CustomName(tag); ok {
		sk := &cache.Skull{
			Position:        pos,
			BlockState:      state,
			OwnerName:       ownerName(tag),
			CustomName:      name,
			CustomRuntimeID: cache.Unresolved,
		}
		s.Skulls.Put(sk)
		t.display(s, sk)
		return
	}

	owner, ok := tag["SkullOwner"].(map[string]any)
	if !ok {
		s.Skulls.Remove(pos)
		return
	}
	id, name := ownerIdentity(owner)
	if id == uuid.Nil {
		s.Skulls.Remove(pos)
		return
	}
	sk := &cache.Skull{
		Position:        pos,
		BlockState:      state,
		Owner:           id,
		OwnerName:       name,
		CustomRuntimeID: cache.Unresolved,
	}
	s.Skulls.Put(sk)
	session.Resync(s, t.ownerTextures(s, owner, id, name), func(o future.Outcome[skin.Textures]) {
		if cur, ok := s.Skulls.Get(pos); !ok || cur != sk {
			return // replaced while resolving
		}
		sk.Textures = &o
		if !o.Ok() {
			s.Log().V(1).Info("could not resolve skull textures", "owner", name, "error", o.Err)
			return
		}
		t.display(s, sk)
	})
}

// descriptor returns the custom block the skull displays.
func (t *translators) descriptor(sk *cache.Skull) (blocks.Descriptor, bool) {
	snapshot := t.blocks.Snapshot()
	if sk.CustomName != "" {
		return snapshot.Lookup(sk.CustomName)
	}
	if sk.Textures == nil || !sk.Textures.Ok() {
		return blocks.Descriptor{}, false
	}
	return snapshot.LookupSkin(sk.Textures.Value.SkinHash())
}

// display replaces the skull block of the client with its custom block, if any.
func (t *translators) display(s *session.Session, sk *cache.Skull) {
	d, ok := t.descriptor(sk)
	if !ok {
		if sk.CustomName != "" {
			s.Log().V(1).Info("skull names unknown custom block", "block", sk.CustomName)
		}
		return
	}
	placement, _ := t.blocks.Snapshot().SkullStates().Skull(sk.BlockState)
	sk.CustomRuntimeID = d.StateFor(placement.Rotation())
	pos := bpacket.BlockPos{sk.Position.X, sk.Position.Y, sk.Position.Z}
	if err := s.SendUpstream(&bpacket.UpdateBlock{
		Position:        pos,
		NewBlockRuntime: uint32(sk.CustomRuntimeID),
		Flags:           bpacket.BlockUpdateNeighbours | bpacket.BlockUpdateNetwork,
	}); err != nil {
		return
	}
	_ = s.SendUpstream(&bpacket.BlockActorData{
		Position: pos,
		NBTData:  skullEntity(sk, placement),
	})
}

// skullTypePlayer is the SkullType of a player head.
const skullTypePlayer byte = 3

// skullEntity returns the Bedrock block entity of a displayed skull.
// Floor heads turn in steps of 22.5 degrees, wall heads face by block state.
func skullEntity(sk *cache.Skull, placement blocks.Skull) map[string]any {
	var rotation float32
	if !placement.Wall {
		rotation = float32(placement.FloorRotation) * 22.5
	}
	return map[string]any{
		"id":        "Skull",
		"x":         sk.Position.X,
		"y":         sk.Position.Y,
		"z":         sk.Position.Z,
		"isMovable": byte(1),
		"Rotation":  rotation,
		"SkullType": skullTypePlayer,
		"UniqueId":  sk.UniqueID,
	}
}

// blockUpdate tracks the states of skull blocks.
// A skull replaced by another block leaves the cache, a rotated
// custom block skull is displayed again.
func (t *translators) blockUpdate(s *session.Session, p *packet.BlockUpdate) error {
	pos := position(p.Position)
	if _, ok := t.blocks.Snapshot().SkullStates().Skull(p.BlockState); !ok {
		s.Skulls.Forget(pos)
		return nil
	}
	sk, ok := s.Skulls.Get(pos)
	changed := ok && sk.BlockState != p.BlockState
	s.Skulls.SetState(pos, p.BlockState)
	if changed && sk.CustomRuntimeID != cache.Unresolved {
		t.display(s, sk)
	}
	return nil
}

// ownerTextures returns the lookup of the owner's textures.
// Textures embedded in the tag and the resolved skin of an owner
// in the player list complete it immediately.
func (t *translators) ownerTextures(s *session.Session, owner map[string]any, id uuid.UUID, name string) *future.Future[future.Outcome[skin.Textures]] {
	if value, ok := texturesProperty(owner); ok {
		tex, err := skin.Decode(value)
		if err != nil {
			return future.Completed(future.Unresolved[skin.Textures](err))
		}
		return future.Completed(future.Resolved(tex))
	}
	if pl, ok := s.PlayerList.Get(id); ok && pl.Skin != nil {
		return future.Completed(future.Resolved(*pl.Skin))
	}
	if t.skins == nil {
		return future.Completed(future.Unresolved[skin.Textures](skin.ErrNotFound))
	}
	if id.Version() == 4 {
		return t.skins.ByUUID(id)
	}
	if name != "" {
		return t.skins.ByName(name)
	}
	return future.Completed(future.Unresolved[skin.Textures](skin.ErrNotFound))
}

func ownerName(tag map[string]any) string {
	owner, _ := tag["SkullOwner"].(map[string]any)
	name, _ := owner["Name"].(string)
	return name
}

// ownerIdentity returns the uuid and name of a SkullOwner compound.
// Owners without Id get the offline uuid of their name.
func ownerIdentity(owner map[string]any) (uuid.UUID, string) {
	name, _ := owner["Name"].(string)
	switch id := owner["Id"].(type) {
	case []int32:
		if len(id) == 4 {
			return uuid.FromInts([4]int32(id)), name
		}
	case string:
		if name != "" {
			return uuid.Derive(id, name), name
		}
		if parsed, err := uuid.Parse(id); err == nil {
			return parsed, name
		}
	}
	if name == "" {
		return uuid.Nil, ""
	}
	return uuid.Derive("", name), name
}

// texturesProperty returns the value of the first textures property
// of a SkullOwner compound:
//
//	{Properties: {textures: [{Value: "...", Signature: "..."}]}}
func texturesProperty(owner map[string]any) (string, bool) {
	props, ok := owner["Properties"].(map[string]any)
	if !ok {
		return "", false
	}
	var first map[string]any
	switch list := props["textures"].(type) {
	case []any:
		if len(list) != 0 {
			first, _ = list[0].(map[string]any)
		}
	case []map[string]any:
		if len(list) != 0 {
			first = list[0]
		}
	}
	value, ok := first["Value"].(string)
	return value, ok && value != ""
}
