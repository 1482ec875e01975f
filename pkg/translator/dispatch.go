package translator

import (
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/util/errs"
)

// Dispatcher hands decoded packets of one direction to their translators.
type Dispatcher struct {
	registry *Registry
	name     string // for logs, e.g. "upstream"
}

// NewDispatcher returns a Dispatcher for the translators of r.
func NewDispatcher(r *Registry, name string) *Dispatcher {
	return &Dispatcher{registry: r, name: name}
}

// Dispatch submits the translation of pc to the session's loop.
//
// Packets without translator are dropped. Translator errors are logged,
// an error wrapping proto.ErrProtocolViolation closes the session.
// It reports whether a translation was submitted.
func (d *Dispatcher) Dispatch(s *session.Session, pc *proto.PacketContext) bool {
	if !pc.KnownPacket() {
		return false
	}
	t, ok := d.registry.Lookup(pc.Kind)
	if !ok {
		s.Log().V(2).Info("no translator for packet, dropping", "direction", d.name, "kind", pc.Kind, "type", proto.TypeOf(pc.Packet).Name())
		return false
	}
	requiresSpawned := d.registry.RequiresSpawned(pc.Kind)
	return s.Submit(func() {
		if requiresSpawned && !spawned(s) {
			return
		}
		err := t.Translate(s, pc.Packet)
		if err == nil {
			return
		}
		log := s.Log().WithValues("direction", d.name, "type", proto.TypeOf(pc.Packet).Name())
		switch {
		case proto.IsFatal(err):
			log.Info("protocol violation, closing session", "error", err)
			s.CloseWithError(err)
		case errs.IsSilent(err):
			log.V(1).Info("error translating packet", "error", err)
		default:
			log.Error(err, "error translating packet")
		}
	})
}

func spawned(s *session.Session) bool {
	st := s.State()
	return st >= session.Spawned && st != session.Closed
}
