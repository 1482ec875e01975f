package proxy

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-logr/logr"
	"github.com/sandertv/gophertunnel/minecraft/protocol/login"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"go.minekube.com/bridge/pkg/edition/bedrock/config"
	bproto "go.minekube.com/bridge/pkg/edition/bedrock/proto"
	bpacket "go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/version"
	"go.minekube.com/bridge/pkg/edition/java/backend"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/session"
	"go.minekube.com/bridge/pkg/util/errs"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// Errors closing a connection before the player spawned.
var (
	ErrLoginTimeout       = errors.New("login timed out")
	ErrUnsupportedVersion = errors.New("unsupported client version")
	ErrInvalidLogin       = errors.New("invalid login")
	ErrNotAuthenticated   = errors.New("not authenticated by Xbox Live")
)

// maxJavaNameLen is the longest username a Java server accepts.
const maxJavaNameLen = 16

// rakConn is an accepted RakNet connection.
type rakConn interface {
	net.Conn
	ReadPacket() ([]byte, error)
}

// replayReader returns the last message of r once more after rewind.
type replayReader struct {
	r      rakConn
	last   []byte
	replay bool
}

func (r *replayReader) ReadPacket() (b []byte, err error) {
	if r.replay {
		r.replay = false
		return r.last, nil
	}
	r.last, err = r.r.ReadPacket()
	return r.last, err
}

func (r *replayReader) rewind() { r.replay = true }

// playerConn is the connection of one Bedrock client.
type playerConn struct {
	proxy *Proxy
	log   logr.Logger
	c     rakConn
	cfg   *config.Config // at connect time

	r   *replayReader
	dec *bproto.Decoder
	enc *bproto.Encoder

	closeOnce sync.Once
	closeErr  error
}

func newPlayerConn(p *Proxy, c rakConn) *playerConn {
	log := p.log.WithName("player-conn").WithValues("remoteAddr", c.RemoteAddr())
	conn := &playerConn{
		proxy: p,
		log:   log,
		c:     c,
		cfg:   p.config(),
		r:     &replayReader{r: c},
	}
	table := conn.defaultTable()
	conn.dec = bproto.NewDecoder(conn.r, table, proto.ServerBound, log.WithName("decoder"))
	conn.enc = bproto.NewEncoder(c, table)
	return conn
}

func (c *playerConn) defaultTable() *codec.Table {
	t, err := c.proxy.codecs.Resolve(version.Default.Protocol)
	if err != nil {
		panic(fmt.Sprintf("default version %s has no codec table: %v", version.Default, err))
	}
	return t
}

// WritePacket writes p to the client as a batch of its own.
func (c *playerConn) WritePacket(p proto.Packet) error { return c.enc.Encode(p) }

// Close closes the connection. It is safe to call it more than once.
func (c *playerConn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.c.Close() })
	return c.closeErr
}

func (c *playerConn) readPacket() (*proto.PacketContext, error) {
	if t := c.cfg.ReadTimeout; t > 0 {
		_ = c.c.SetReadDeadline(time.Now().Add(t))
	}
	return c.dec.Decode()
}

// kick tells the client why it is disconnected.
func (c *playerConn) kick(reason string) {
	if err := c.enc.Encode(&bpacket.Disconnect{Message: reason}); err != nil {
		c.log.V(1).Info("error sending disconnect", "error", err)
	}
}

func (c *playerConn) serve(ctx context.Context) {
	defer c.Close()
	s := session.New(ctx, session.Options{
		Protocol: version.Default.Protocol,
		Upstream: c,
		Event:    c.proxy.event,
		Logger:   c.log,
	})
	defer c.proxy.unregister(s)

	if t := c.cfg.LoginTimeout; t > 0 {
		timer := time.AfterFunc(t, func() {
			if s.State() < session.Spawned {
				c.kick("Login timed out")
				s.CloseWithError(ErrLoginTimeout)
			}
		})
		defer timer.Stop()
	}

	server, err := c.login(s)
	if err != nil {
		c.closeSession(s, err)
		return
	}
	c.proxy.register(s)

	go c.serverLoop(s, server)
	c.clientLoop(s)
}

// login negotiates the protocol, authenticates the client and
// logs it in at the Java server.
func (c *playerConn) login(s *session.Session) (_ *backend.Conn, err error) {
	ctx, span := tracer.Start(s.Context(), "bedrock.Login", trace.WithSpanKind(trace.SpanKindServer))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := c.readLogin(s)
	if err != nil {
		return nil, err
	}
	s.Advance(session.Authenticating)

	identity, client, auth, err := login.Parse(req.ConnectionRequest)
	if err == nil {
		err = identity.Validate()
	}
	if err != nil {
		c.kick("Invalid login")
		return nil, fmt.Errorf("%w: %v", ErrInvalidLogin, err)
	}
	if c.cfg.OnlineMode && !auth.XBOXLiveAuthenticated {
		c.kick("You must be logged in to Xbox Live to join.")
		return nil, ErrNotAuthenticated
	}

	name := javaName(c.cfg.UsernameFormat, identity.DisplayName)
	span.SetAttributes(
		attribute.String("username", name),
		attribute.Int("protocol", int(s.Protocol())),
		attribute.Bool("xbox_authenticated", auth.XBOXLiveAuthenticated),
	)
	s.SetIdentity(session.Identity{
		UUID: uuid.OfflinePlayerUUID(name),
		Name: name,
		XUID: identity.XUID,
	})
	s.Log().Info("Bedrock player logging in",
		"xuid", identity.XUID, "gameVersion", client.GameVersion, "authenticated", auth.XBOXLiveAuthenticated)
	if !s.Advance(session.Spawning) {
		return nil, session.ErrClosed
	}

	id := s.Identity()
	server, err := backend.Connect(ctx, c.proxy.backend, &backend.Player{
		ID:   id.UUID,
		Name: id.Name,
		Addr: c.c.RemoteAddr(),
	})
	if err != nil {
		reason := "Could not connect to the server"
		if errors.Is(err, backend.ErrLoginDisconnect) {
			reason = err.Error()
		}
		c.kick(reason)
		return nil, err
	}
	s.SetDownstream(server)
	if s.Closed() {
		_ = server.Close()
		return nil, session.ErrClosed
	}

	if err = s.SendUpstream(&bpacket.PlayStatus{Status: bpacket.PlayStatusLoginSuccess}); err != nil {
		return nil, err
	}
	if !s.Advance(session.Spawned) {
		return nil, session.ErrClosed
	}
	return server, nil
}

// networkSettingsRequest prefixes a batch holding only an uncompressed
// RequestNetworkSettings. A deflate stream never starts with it,
// 6 declares a reserved block type.
var networkSettingsRequest = binary.AppendUvarint([]byte{0xfe, 6}, uint64(bpacket.IDRequestNetworkSettings))

// readLogin reads the Login of the client.
//
// Clients since 1.19.30 request the network settings first and compress
// only after they received them. Older clients send a compressed Login right away.
func (c *playerConn) readLogin(s *session.Session) (*bpacket.Login, error) {
	if t := c.cfg.ReadTimeout; t > 0 {
		_ = c.c.SetReadDeadline(time.Now().Add(t))
	}
	first, err := c.r.ReadPacket()
	if err != nil {
		return nil, err
	}
	c.r.rewind()

	if bytes.HasPrefix(first, networkSettingsRequest) {
		pc, err := c.readPacket()
		if err != nil {
			return nil, err
		}
		p, ok := pc.Packet.(*bpacket.RequestNetworkSettings)
		if !ok {
			return nil, proto.Violationf("expected network settings request, got %s", pc.Kind)
		}
		return c.networkSettings(s, proto.Protocol(p.ClientProtocol))
	}

	c.dec.EnableCompression()
	c.enc.EnableCompression()
	req, err := c.expectLogin()
	if err != nil {
		return nil, err
	}
	if err = c.negotiate(s, proto.Protocol(req.ClientProtocol)); err != nil {
		return nil, err
	}
	return req, nil
}

func (c *playerConn) networkSettings(s *session.Session, protocol proto.Protocol) (*bpacket.Login, error) {
	if err := c.negotiate(s, protocol); err != nil {
		return nil, err
	}
	if err := c.enc.Encode(&bpacket.NetworkSettings{
		CompressionThreshold: c.cfg.CompressionThreshold,
		CompressionAlgorithm: bpacket.CompressionFlate,
	}); err != nil {
		return nil, err
	}
	c.enc.EnableCompression()
	c.dec.EnableCompression()

	req, err := c.expectLogin()
	if err != nil {
		return nil, err
	}
	if proto.Protocol(req.ClientProtocol) != protocol {
		return nil, proto.Violationf("login protocol %d differs from requested %d", req.ClientProtocol, protocol)
	}
	return req, nil
}

func (c *playerConn) expectLogin() (*bpacket.Login, error) {
	pc, err := c.readPacket()
	if err != nil {
		return nil, err
	}
	req, ok := pc.Packet.(*bpacket.Login)
	if !ok {
		return nil, proto.Violationf("expected login packet, got %s", pc.Kind)
	}
	return req, nil
}

// negotiate switches to the codec table of protocol or tells the
// client that its version is not supported.
func (c *playerConn) negotiate(s *session.Session, protocol proto.Protocol) error {
	v := version.Protocol(protocol)
	if v == nil {
		status := bpacket.PlayStatusLoginFailedServer
		if protocol < version.Supported[0].Protocol {
			status = bpacket.PlayStatusLoginFailedClient
		}
		if err := c.enc.Encode(&bpacket.PlayStatus{Status: status}); err != nil {
			c.log.V(1).Info("error sending login failure", "error", err)
		}
		return fmt.Errorf("%w: protocol %d", ErrUnsupportedVersion, protocol)
	}
	t, err := c.proxy.codecs.Resolve(protocol)
	if err != nil {
		return err
	}
	c.enc.SetTable(t)
	c.dec.SetTable(t)
	s.SetProtocol(protocol)
	c.log.V(1).Info("negotiated version", "version", v.String())
	return nil
}

// clientLoop dispatches the packets of the client until the connection closes.
func (c *playerConn) clientLoop(s *session.Session) {
	for {
		pc, err := c.readPacket()
		if err != nil {
			c.closeSession(s, err)
			return
		}
		c.proxy.upstream.Dispatch(s, pc)
	}
}

// serverLoop dispatches the packets of the Java server until the connection closes.
func (c *playerConn) serverLoop(s *session.Session, server *backend.Conn) {
	for {
		pc, err := server.ReadPacket()
		if err != nil {
			c.closeSession(s, err)
			return
		}
		c.proxy.downstream.Dispatch(s, pc)
	}
}

func (c *playerConn) closeSession(s *session.Session, err error) {
	if s.Closed() {
		return
	}
	if errs.IsConnClosedErr(err) {
		s.Close()
		return
	}
	s.CloseWithError(err)
}

// javaName formats a Bedrock display name to a Java username.
// Accents are stripped, other characters a Java server rejects become "_".
func javaName(format, displayName string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, displayName)
	if err != nil {
		folded = displayName
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, folded)
	name := fmt.Sprintf(format, clean)
	if len(name) > maxJavaNameLen {
		name = name[:maxJavaNameLen]
	}
	return name
}
