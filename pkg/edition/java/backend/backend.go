// Package backend connects bridged players to the Java edition server
// and logs them in offline mode.
package backend

import (
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"go.minekube.com/bridge/pkg/edition/java/proto/codec"
	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/edition/java/proto/state"
	"go.minekube.com/bridge/pkg/edition/java/proto/version"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/util/netutil"
	"go.minekube.com/bridge/pkg/util/uuid"
)

// ErrLoginDisconnect is returned when the server kicks the player during login.
var ErrLoginDisconnect = errors.New("disconnected by server during login")

// Player is the identity logged in at the server.
type Player struct {
	ID         uuid.UUID
	Name       string
	Addr       net.Addr // the Bedrock client address
	Properties []packet.ProfileProperty
}

// Dialer connects to the server address.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Options are the options to connect to a Java server.
type Options struct {
	Addr       string         // The server address.
	Forwarding ForwardingMode // How the player is forwarded.
	// Timeout of dialing and login. Zero means no timeout.
	Timeout time.Duration
	// CompressionLevel is the zlib level used once the server enables compression.
	CompressionLevel int
	// Dialer dials the server, net.Dialer if nil.
	Dialer Dialer
	Logger logr.Logger
}

// Conn is a Java connection in the play state.
type Conn struct {
	c       net.Conn
	enc     *codec.Encoder
	dec     *codec.Decoder
	log     logr.Logger
	profile *packet.LoginSuccess

	closeOnce sync.Once
	closeErr  error
}

// Connect dials the server of opts and logs player in.
// The returned Conn is in the play state.
func Connect(ctx context.Context, opts *Options, player *Player) (*Conn, error) {
	log := opts.Logger.WithName("backend").WithValues("server", opts.Addr, "player", player.Name)
	debug := log.V(1)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	debug.Info("Connecting to server...")
	c, err := dialer.DialContext(ctx, "tcp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to server %q: %w", opts.Addr, err)
	}
	debug.Info("Connected to server")

	conn := &Conn{
		c:   c,
		enc: codec.NewEncoder(c, proto.ServerBound, log),
		dec: codec.NewDecoder(c, proto.ClientBound, log),
		log: log,
	}

	// Unblock reads and writes once ctx is done.
	stop := context.AfterFunc(ctx, func() { _ = c.SetDeadline(time.Unix(1, 0)) })
	err = conn.login(opts, player)
	if !stop() {
		err = errors.Join(err, ctx.Err())
	}
	if err == nil {
		err = c.SetDeadline(time.Time{})
	}
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	debug.Info("Logged in at server", "uuid", conn.profile.UUID)
	return conn, nil
}

func (c *Conn) login(opts *Options, player *Player) error {
	host, port, err := netutil.SplitHostPort(opts.Addr)
	if err != nil {
		return err
	}
	if opts.Forwarding == ProxyProtocolForwarding {
		header, err := proxyHeader(player.Addr, c.c.RemoteAddr())
		if err != nil {
			return err
		}
		if _, err = header.WriteTo(c.c); err != nil {
			return fmt.Errorf("error writing proxy header: %w", err)
		}
	}

	handshake := &packet.Handshake{
		ProtocolVersion: int32(version.Default.Protocol),
		ServerAddress:   host,
		Port:            port,
		NextStatus:      packet.HandshakeLogin,
	}
	if opts.Forwarding == LegacyForwarding {
		handshake.ServerAddress = legacyForwardingAddress(opts.Addr, player)
	}
	if _, err = c.enc.WritePacket(handshake); err != nil {
		return fmt.Errorf("error writing handshake packet: %w", err)
	}
	if err = c.setState(state.Login); err != nil {
		return err
	}
	if _, err = c.enc.WritePacket(&packet.LoginStart{
		Username: player.Name,
		HolderID: player.ID,
	}); err != nil {
		return fmt.Errorf("error writing login start packet: %w", err)
	}

	for {
		pc, err := c.dec.Decode()
		if err != nil && !errors.Is(err, proto.ErrDecoderLeftBytes) {
			return fmt.Errorf("error reading login packet: %w", err)
		}
		switch p := pc.Packet.(type) {
		case *packet.SetCompression:
			c.dec.SetCompressionThreshold(int(p.Threshold))
			if err = c.enc.SetCompression(int(p.Threshold), opts.compressionLevel()); err != nil {
				return err
			}
		case *packet.LoginPluginRequest:
			// We do not understand any login plugin channels.
			if _, err = c.enc.WritePacket(&packet.LoginPluginResponse{MessageID: p.MessageID}); err != nil {
				return err
			}
		case *packet.LoginDisconnect:
			return fmt.Errorf("%w: %s", ErrLoginDisconnect, p.Reason)
		case *packet.LoginSuccess:
			c.profile = p
			return c.setState(state.Play)
		default:
			// Encryption request of an online mode server, or a login packet we do not know.
			return fmt.Errorf("unexpected login packet %s, is the server in offline mode?", pc.Kind)
		}
	}
}

func (c *Conn) setState(s *state.Registry) error {
	if err := c.enc.SetState(s); err != nil {
		return err
	}
	return c.dec.SetState(s)
}

func (o *Options) compressionLevel() int {
	if o.CompressionLevel == 0 {
		return zlib.DefaultCompression
	}
	return o.CompressionLevel
}

// Profile returns the profile the server logged the player in with.
func (c *Conn) Profile() *packet.LoginSuccess { return c.profile }

// ReadPacket blocks until the next packet is received.
// Packets unknown to the play state are returned with a nil Packet.
//
// A packet that fails to decode is logged and skipped. Only a protocol violation
// or an error reading the connection is returned.
func (c *Conn) ReadPacket() (*proto.PacketContext, error) {
	for {
		pc, err := c.dec.Decode()
		switch {
		case err == nil:
			return pc, nil
		case errors.Is(err, proto.ErrDecoderLeftBytes):
			c.log.V(1).Info("packet has left over bytes", "kind", pc.Kind, "type", proto.TypeOf(pc.Packet))
			return pc, nil
		case pc != nil && !proto.IsFatal(err):
			// the frame was read completely, the next one is intact
			c.log.V(1).Info("dropping undecodable packet", "kind", pc.Kind, "error", err)
			continue
		}
		return pc, err
	}
}

// WritePacket writes a packet to the server.
func (c *Conn) WritePacket(p proto.Packet) error {
	_, err := c.enc.WritePacket(p)
	return err
}

// Close closes the connection. It is safe to call it more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.c.Close() })
	return c.closeErr
}

// RemoteAddr returns the server address.
func (c *Conn) RemoteAddr() net.Addr { return c.c.RemoteAddr() }
