package java

import (
	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/internal/future"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/session/cache"
	"go.minekube.com/bridge/pkg/skin"
)

func (t *translators) playerInfoUpdate(s *session.Session, p *packet.PlayerInfoUpdate) error {
	for i := range p.Entries {
		e := &p.Entries[i]
		if p.Actions.Has(packet.AddPlayer) {
			textures, _ := e.Textures()
			pl := &cache.Player{ProfileID: e.ProfileID, Name: e.Name, Textures: textures}
			applyActions(pl, p.Actions, e)
			s.PlayerList.Put(pl)
			t.resolveSkin(s, pl)
			continue
		}
		if !s.PlayerList.Update(e.ProfileID, func(pl *cache.Player) { applyActions(pl, p.Actions, e) }) {
			s.Log().V(2).Info("player info update of unknown player", "profileID", e.ProfileID)
		}
	}
	return nil
}

func applyActions(pl *cache.Player, actions packet.PlayerInfoAction, e *packet.PlayerInfoEntry) {
	if actions.Has(packet.UpdateListed) {
		pl.Listed = e.Listed
	}
	if actions.Has(packet.UpdateLatency) {
		pl.Latency = e.Latency
	}
}

// resolveSkin resolves the skin of a player added to the player list.
// Players without textures property are looked up by profile id
// unless they are offline players.
func (t *translators) resolveSkin(s *session.Session, pl *cache.Player) {
	var lookup *future.Future[future.Outcome[skin.Textures]]
	switch {
	case pl.Textures != "":
		tex, err := skin.Decode(pl.Textures)
		if err != nil {
			lookup = future.Completed(future.Unresolved[skin.Textures](err))
		} else {
			lookup = future.Completed(future.Resolved(tex))
		}
	case t.skins != nil && pl.ProfileID.Version() == 4:
		lookup = t.skins.ByUUID(pl.ProfileID)
	default:
		return
	}
	session.Resync(s, lookup, func(o future.Outcome[skin.Textures]) {
		if !o.Ok() {
			s.Log().V(1).Info("could not resolve player skin", "player", pl.Name, "error", o.Err)
			return
		}
		tex := o.Value
		s.PlayerList.Update(pl.ProfileID, func(cur *cache.Player) {
			if cur == pl {
				cur.Skin = &tex
			}
		})
	})
}

func playerInfoRemove(s *session.Session, p *packet.PlayerInfoRemove) error {
	for _, id := range p.PlayerIDs {
		s.PlayerList.Remove(id)
	}
	return nil
}
