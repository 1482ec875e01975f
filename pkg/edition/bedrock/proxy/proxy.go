// Package proxy accepts Bedrock edition clients over RakNet and bridges
// each of them to the Java edition server.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/robinbraemer/event"
	"github.com/rs/xid"
	"github.com/sandertv/go-raknet"
	"go.uber.org/atomic"

	"go.minekube.com/bridge/pkg/edition/bedrock/config"
	bpacket "go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/version"
	"go.minekube.com/bridge/pkg/edition/java/backend"
	"go.minekube.com/bridge/pkg/internal/addrquota"
	"go.minekube.com/bridge/pkg/internal/reload"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/translator"
	"go.minekube.com/bridge/pkg/util/errs"
	"go.minekube.com/bridge/pkg/util/netutil"
)

// Options are the options for a new Bedrock edition Proxy.
type Options struct {
	// Config requires a valid configuration.
	Config *config.Config
	// Backend connects players to the Java server.
	Backend *backend.Options
	// Codecs is the Bedrock codec registry.
	Codecs *codec.Registry
	// Upstream translates packets of Bedrock clients.
	Upstream *translator.Registry
	// Downstream translates packets of the Java server.
	Downstream *translator.Registry
	// The event manager to use.
	// If none is set, no events are sent.
	EventMgr event.Manager
	// Logger is the logger to be used by the Proxy.
	// If none is set, does no logging at all.
	Logger logr.Logger
}

// New takes a config that should have been validated by
// config.Validate and returns a new initialized Proxy ready to start.
func New(options Options) (p *Proxy, err error) {
	if options.Config == nil || options.Backend == nil {
		return nil, errs.ErrMissingConfig
	}
	if options.Codecs == nil || options.Upstream == nil || options.Downstream == nil {
		return nil, errors.New("missing codecs or translators")
	}
	eventMgr := options.EventMgr
	if eventMgr == nil {
		eventMgr = event.Nop
	}

	p = &Proxy{
		log:        options.Logger.WithName("bedrock"),
		event:      eventMgr,
		backend:    options.Backend,
		codecs:     options.Codecs,
		upstream:   translator.NewDispatcher(options.Upstream, "upstream"),
		downstream: translator.NewDispatcher(options.Downstream, "downstream"),
		serverID:   time.Now().UnixNano(),
		sessions:   map[xid.ID]*session.Session{},
	}
	p.setConfig(options.Config)
	if err = p.initMeter(); err != nil {
		return nil, fmt.Errorf("error initializing metrics: %w", err)
	}
	return p, nil
}

// Proxy is the Bedrock edition listener of the bridge.
type Proxy struct {
	log        logr.Logger
	event      event.Manager
	backend    *backend.Options
	codecs     *codec.Registry
	upstream   *translator.Dispatcher
	downstream *translator.Dispatcher
	serverID   int64

	cfg   atomic.Pointer[config.Config]
	quota atomic.Pointer[addrquota.Quota]

	closeMu       sync.Mutex
	closeListener chan struct{}
	listener      *raknet.Listener
	started       bool

	mu       sync.RWMutex // Protects following fields
	sessions map[xid.ID]*session.Session
}

func (p *Proxy) config() *config.Config { return p.cfg.Load() }

func (p *Proxy) setConfig(c *config.Config) {
	p.cfg.Store(c)
	p.quota.Store(addrquota.New(c.Quota.Connections))
}

// Start starts listening for Bedrock clients until ctx is canceled.
// Connected players are disconnected before Start returns.
func (p *Proxy) Start(ctx context.Context) error {
	p.closeMu.Lock()
	if p.started {
		p.closeMu.Unlock()
		return errors.New("proxy already started")
	}
	p.started = true
	p.closeMu.Unlock()

	unsubscribe := reload.Subscribe(p.event, p.onConfigUpdate)
	defer unsubscribe()
	defer p.disconnectAll("Bridge shutting down")

	for ctx.Err() == nil {
		restart := make(chan struct{})
		p.closeMu.Lock()
		p.closeListener = restart
		p.closeMu.Unlock()

		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(stop)
			select {
			case <-ctx.Done():
			case <-restart:
			case <-done:
			}
		}()
		err := p.listenAndServe(ctx, p.config().Bind, stop)
		close(done)
		if err != nil {
			return err
		}
	}
	return nil
}

// onConfigUpdate applies a reloaded config.
// The listener is restarted if its address changed.
func (p *Proxy) onConfigUpdate(e *reload.ConfigUpdateEvent[config.Config]) {
	prev := p.config()
	p.setConfig(e.Config)
	p.updatePong()
	if requiresRestart(prev, e.Config) {
		p.log.Info("Bind address changed, restarting listener", "from", prev.Bind, "to", e.Config.Bind)
		p.restartListener()
	}
}

func requiresRestart(prev, next *config.Config) bool {
	return prev == nil || next == nil || prev.Bind != next.Bind
}

func (p *Proxy) restartListener() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closeListener != nil {
		close(p.closeListener)
		p.closeListener = nil
	}
}

func (p *Proxy) listenAndServe(ctx context.Context, addr string, stop <-chan struct{}) error {
	select {
	case <-stop:
		return nil
	default:
	}

	ln, err := raknet.Listen(addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	p.closeMu.Lock()
	p.listener = ln
	p.closeMu.Unlock()
	p.updatePong()
	go func() { <-stop; _ = ln.Close() }()

	p.log.Info("Listening for Bedrock connections", "addr", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			if errs.IsConnClosedErr(err) {
				return nil
			}
			return fmt.Errorf("error accepting new connection: %w", err)
		}
		go p.HandleConn(ctx, conn)
	}
}

// HandleConn bridges an accepted connection until it is closed.
// raw must read whole RakNet messages with ReadPacket, as *raknet.Conn does.
func (p *Proxy) HandleConn(ctx context.Context, raw net.Conn) {
	rc, ok := raw.(rakConn)
	if !ok {
		p.log.Error(nil, "connection does not read RakNet messages", "type", fmt.Sprintf("%T", raw))
		_ = raw.Close()
		return
	}
	if p.quota.Load().Blocked(raw.RemoteAddr()) {
		p.log.V(1).Info("connection exceeds rate limit, closing", "remoteAddr", raw.RemoteAddr())
		_ = raw.Close()
		return
	}
	newPlayerConn(p, rc).serve(ctx)
}

func (p *Proxy) register(s *session.Session) {
	p.mu.Lock()
	p.sessions[s.ID()] = s
	p.mu.Unlock()
	p.updatePong()
}

func (p *Proxy) unregister(s *session.Session) {
	p.mu.Lock()
	delete(p.sessions, s.ID())
	p.mu.Unlock()
	p.updatePong()
}

// PlayerCount returns the number of connected players.
func (p *Proxy) PlayerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

func (p *Proxy) disconnectAll(reason string) {
	p.mu.RLock()
	sessions := make([]*session.Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.mu.RUnlock()
	for _, s := range sessions {
		_ = s.SendUpstream(&bpacket.Disconnect{Message: reason})
		s.Close()
	}
}

// updatePong updates the server list entry of the listener.
func (p *Proxy) updatePong() {
	p.closeMu.Lock()
	ln := p.listener
	p.closeMu.Unlock()
	if ln == nil {
		return
	}
	ln.PongData(pongData(p.config(), p.PlayerCount(), p.serverID, ln.Addr()))
}

// pongData returns the unconnected pong of the server list:
//
//	MCPE;motd;protocol;version;players;max players;server id;sub motd;game mode;1;port v4;port v6;
func pongData(c *config.Config, players int, serverID int64, addr net.Addr) []byte {
	_, port := netutil.HostPort(addr)
	portStr := strconv.Itoa(int(port))
	motd := strings.NewReplacer(";", "", "\n", " ").Replace(c.Motd)
	return []byte(strings.Join([]string{
		"MCPE",
		motd,
		strconv.Itoa(int(version.Default.Protocol)),
		version.Default.FirstName(),
		strconv.Itoa(players),
		strconv.Itoa(c.MaxPlayers),
		strconv.FormatInt(serverID, 10),
		"Bridge",
		"Survival",
		"1",
		portStr,
		portStr,
	}, ";") + ";")
}
