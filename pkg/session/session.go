// Package session holds the server side state of one bridged player and
// the serial task loop all of its packet handling runs on.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"github.com/rs/xid"
	"go.uber.org/atomic"

	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/session/cache"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// State is the lifecycle state of a Session.
// States only advance, Closed is terminal.
type State uint32

const (
	Connecting     State = iota // Transport accepted, protocol not negotiated.
	Authenticating              // Login received, identity being resolved.
	Spawning                    // Identity accepted, connecting to the Java server.
	Spawned                     // The Java server accepted the player.
	Initialized                 // The client loaded the local player.
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Authenticating:
		return "Authenticating"
	case Spawning:
		return "Spawning"
	case Spawned:
		return "Spawned"
	case Initialized:
		return "Initialized"
	case Closed:
		return "Closed"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Identity is the authenticated identity of a player.
type Identity struct {
	UUID uuid.UUID
	Name string // display name
	XUID string // empty in offline mode
}

// PacketWriter writes packets to one side of the bridge.
type PacketWriter interface {
	WritePacket(p proto.Packet) error
}

// ErrClosed is returned when writing to a closed Session.
var ErrClosed = errors.New("session closed")

// Options are the options of a new Session.
type Options struct {
	Protocol proto.Protocol // Initially assumed Bedrock protocol.
	Upstream PacketWriter   // Writes to the Bedrock client.
	// Event receives the lifecycle events of the session.
	// If none is set, no events are sent.
	Event  event.Manager
	Logger logr.Logger
}

// Session is the state of one player connection.
//
// Everything but the lifecycle and the accessors must only be used from tasks of
// the Session's loop, see Submit.
type Session struct {
	id       xid.ID
	ctx      context.Context
	cancel   context.CancelFunc
	eventMgr event.Manager
	loop     *loop

	state     atomic.Uint32
	runtimeID uint64
	closeOnce sync.Once

	mu         sync.RWMutex // Protects following fields
	log        logr.Logger
	protocol   proto.Protocol
	identity   Identity
	upstream   PacketWriter
	downstream PacketWriter

	Entities   *cache.Entities
	Skulls     *cache.Skulls
	Forms      *cache.Forms
	PlayerList *cache.PlayerList
}

// New returns a new Session in the Connecting state and starts its loop.
// The loop stops when the Session is closed or ctx is canceled.
func New(ctx context.Context, opts Options) *Session {
	id := xid.New()
	log := opts.Logger.WithValues("session", id.String())
	eventMgr := opts.Event
	if eventMgr == nil {
		eventMgr = event.Nop
	}
	s := &Session{
		id:         id,
		eventMgr:   eventMgr,
		loop:       newLoop(log),
		log:        log,
		protocol:   opts.Protocol,
		upstream:   opts.Upstream,
		Entities:   cache.NewEntities(),
		Skulls:     cache.NewSkulls(),
		Forms:      cache.NewForms(),
		PlayerList: cache.NewPlayerList(),
	}
	s.ctx, s.cancel = context.WithCancel(logr.NewContext(ctx, log))
	s.runtimeID = s.Entities.NextRuntimeID()

	go s.loop.run()
	go func() {
		<-s.ctx.Done()
		s.Close()
	}()
	return s
}

// ID returns the unique id of the Session.
func (s *Session) ID() xid.ID { return s.id }

// Context is canceled when the Session is closed.
func (s *Session) Context() context.Context { return s.ctx }

// Log returns the logger of the Session.
func (s *Session) Log() logr.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Closed reports whether the Session is closed.
func (s *Session) Closed() bool { return s.State() == Closed }

// RuntimeID is the Bedrock runtime entity id of the player.
func (s *Session) RuntimeID() uint64 { return s.runtimeID }

// Protocol returns the negotiated Bedrock protocol.
func (s *Session) Protocol() proto.Protocol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocol
}

// SetProtocol sets the negotiated Bedrock protocol.
func (s *Session) SetProtocol(p proto.Protocol) {
	s.mu.Lock()
	s.protocol = p
	s.mu.Unlock()
}

// Identity returns the identity of the player.
func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// SetIdentity sets the authenticated identity.
func (s *Session) SetIdentity(id Identity) {
	s.mu.Lock()
	s.identity = id
	s.log = s.log.WithValues("name", id.Name)
	s.mu.Unlock()
}

// SetDownstream sets the writer to the Java server.
func (s *Session) SetDownstream(w PacketWriter) {
	s.mu.Lock()
	s.downstream = w
	s.mu.Unlock()
}

// Advance moves the Session forward to state to.
// It reports false and does nothing if the Session is at or past to.
func (s *Session) Advance(to State) bool {
	if to == Closed {
		s.Close()
		return true
	}
	for {
		from := s.state.Load()
		if State(from) >= to {
			return false
		}
		if s.state.CompareAndSwap(from, uint32(to)) {
			s.Log().V(1).Info("session state changed", "from", State(from), "to", to)
			s.eventMgr.Fire(&StateChangeEvent{session: s, from: State(from), to: to})
			return true
		}
	}
}

// Initialize marks the local player as loaded by the client.
// It reports false if the Session is already initialized or closed.
func (s *Session) Initialize() bool {
	return s.Advance(Initialized)
}

// Submit enqueues fn to run on the Session's loop after all previously submitted tasks.
// It reports false and drops fn if the Session is closed.
func (s *Session) Submit(fn func()) bool {
	return s.loop.submit(fn)
}

// InLoop reports whether the caller runs on the Session's loop,
// that is inside a task passed to Submit or Schedule.
func (s *Session) InLoop() bool {
	return s.loop.inLoop()
}

// Schedule submits fn after d.
func (s *Session) Schedule(d time.Duration, fn func()) *time.Timer {
	return s.loop.schedule(d, fn)
}

// SendUpstream writes p to the Bedrock client.
// A failed write closes the Session.
func (s *Session) SendUpstream(p proto.Packet) error {
	s.mu.RLock()
	w := s.upstream
	s.mu.RUnlock()
	return s.send(w, "upstream", p)
}

// SendDownstream writes p to the Java server.
// A failed write closes the Session.
func (s *Session) SendDownstream(p proto.Packet) error {
	s.mu.RLock()
	w := s.downstream
	s.mu.RUnlock()
	return s.send(w, "downstream", p)
}

func (s *Session) send(w PacketWriter, dir string, p proto.Packet) error {
	if s.Closed() {
		return ErrClosed
	}
	if w == nil {
		return fmt.Errorf("no %s connection", dir)
	}
	if err := w.WritePacket(p); err != nil {
		s.Log().V(1).Info("error writing packet, closing session", "direction", dir, "error", err)
		s.CloseWithError(err)
		return err
	}
	return nil
}

// Close closes the Session. It is safe to call it more than once.
func (s *Session) Close() { s.CloseWithError(nil) }

// CloseWithError closes the Session with the reason err.
//
// Closing drops queued tasks and continuations, releases the caches,
// cancels the Session's context and closes the upstream and downstream
// writers that are io.Closers.
func (s *Session) CloseWithError(err error) {
	s.closeOnce.Do(func() {
		from := State(s.state.Swap(uint32(Closed)))
		s.loop.close()
		s.cancel()

		s.Skulls.Clear()
		s.Forms.Clear()
		s.PlayerList.Clear()
		s.Entities.Clear()

		s.mu.RLock()
		writers := []PacketWriter{s.upstream, s.downstream}
		log := s.log
		s.mu.RUnlock()
		for _, w := range writers {
			if c, ok := w.(io.Closer); ok {
				_ = c.Close()
			}
		}

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Info("session closed", "reason", err.Error())
		} else {
			log.V(1).Info("session closed")
		}
		s.eventMgr.Fire(&StateChangeEvent{session: s, from: from, to: Closed})
		s.eventMgr.Fire(&DisconnectEvent{session: s, reason: err})
	})
}
