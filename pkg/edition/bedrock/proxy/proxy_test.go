package proxy

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/sandertv/gophertunnel/minecraft/protocol/login"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/bridge/pkg/edition/bedrock/config"
	bproto "go.minekube.com/bridge/pkg/edition/bedrock/proto"
	bpacket "go.minekube.com/bridge/pkg/edition/bedrock/proto/packet"
	"go.minekube.com/bridge/pkg/edition/bedrock/proto/version"
	"go.minekube.com/bridge/pkg/edition/java/backend"
	jcodec "go.minekube.com/bridge/pkg/edition/java/proto/codec"
	jpacket "go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/edition/java/proto/state"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/proto/codec"
	"go.minekube.com/bridge/pkg/translator"
	btranslator "go.minekube.com/bridge/pkg/translator/bedrock"
	jtranslator "go.minekube.com/bridge/pkg/translator/java"
	"go.minekube.com/bridge/pkg/util/uuid"
)

const timeout = 5 * time.Second

// fakeConn is the proxy end of a RakNet connection.
type fakeConn struct {
	in, out chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 64),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadPacket() ([]byte, error) {
	select {
	case b := <-c.in:
		return b, nil
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) Write(b []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	case c.out <- bytes.Clone(b):
		return len(b), nil
	}
}

func (c *fakeConn) Read([]byte) (int, error) { return 0, errors.New("use ReadPacket") }
func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
func (c *fakeConn) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 19132}
}
func (c *fakeConn) RemoteAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 51234}
}
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

type chanWriter chan<- []byte

func (w chanWriter) Write(b []byte) (int, error) {
	w <- bytes.Clone(b)
	return len(b), nil
}

type chanReader <-chan []byte

func (r chanReader) ReadPacket() ([]byte, error) {
	select {
	case b := <-r:
		return b, nil
	case <-time.After(timeout):
		return nil, errors.New("timed out waiting for packet")
	}
}

// client is the Bedrock client end of a fakeConn.
type client struct {
	t   *testing.T
	enc *bproto.Encoder
	dec *bproto.Decoder
}

func newClient(t *testing.T, conn *fakeConn, codecs *codec.Registry) *client {
	table, err := codecs.Resolve(version.Default.Protocol)
	require.NoError(t, err)
	return &client{
		t:   t,
		enc: bproto.NewEncoder(chanWriter(conn.in), table),
		dec: bproto.NewDecoder(chanReader(conn.out), table, proto.ClientBound, testr.New(t)),
	}
}

func (c *client) compress() {
	c.enc.EnableCompression()
	c.dec.EnableCompression()
}

func (c *client) write(p proto.Packet) {
	require.NoError(c.t, c.enc.Encode(p))
}

func (c *client) read() proto.Packet {
	pc, err := c.dec.Decode()
	require.NoError(c.t, err)
	return pc.Packet
}

type pipeDialer struct{ conn net.Conn }

func (d *pipeDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return d.conn, nil
}

// javaServer is the Java server end of a pipe.
type javaServer struct {
	t   *testing.T
	enc *jcodec.Encoder
	dec *jcodec.Decoder
}

func (s *javaServer) read() proto.Packet {
	pc, err := s.dec.Decode()
	require.NoError(s.t, err)
	return pc.Packet
}

func (s *javaServer) write(p proto.Packet) {
	_, err := s.enc.WritePacket(p)
	require.NoError(s.t, err)
}

func (s *javaServer) setState(r *state.Registry) {
	require.NoError(s.t, s.enc.SetState(r))
	require.NoError(s.t, s.dec.SetState(r))
}

type harness struct {
	proxy  *Proxy
	codecs *codec.Registry
	server *javaServer
}

func newHarness(t *testing.T, modify func(c *config.Config)) *harness {
	codecs, err := bproto.NewRegistry()
	require.NoError(t, err)
	up, err := btranslator.Register(translator.NewBuilder()).Build()
	require.NoError(t, err)
	down, err := jtranslator.Register(translator.NewBuilder(), jtranslator.Options{Bedrock: codecs}).Build()
	require.NoError(t, err)

	cfg := config.DefaultConfig
	cfg.LoginTimeout = timeout
	if modify != nil {
		modify(&cfg)
	}

	javaClient, javaSrv := net.Pipe()
	t.Cleanup(func() { _ = javaSrv.Close() })
	log := testr.New(t)
	p, err := New(Options{
		Config: &cfg,
		Backend: &backend.Options{
			Addr:       "java.example.com:25565",
			Forwarding: backend.NoForwarding,
			Timeout:    timeout,
			Dialer:     &pipeDialer{conn: javaClient},
			Logger:     log,
		},
		Codecs:     codecs,
		Upstream:   up,
		Downstream: down,
		Logger:     log,
	})
	require.NoError(t, err)
	return &harness{
		proxy:  p,
		codecs: codecs,
		server: &javaServer{
			t:   t,
			enc: jcodec.NewEncoder(javaSrv, proto.ClientBound, log),
			dec: jcodec.NewDecoder(javaSrv, proto.ServerBound, log),
		},
	}
}

// connect hands a new connection to the proxy and returns the client end.
func (h *harness) connect(t *testing.T) (*client, *fakeConn) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := newFakeConn()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.proxy.HandleConn(ctx, conn)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return newClient(t, conn, h.codecs), conn
}

func loginRequest(t *testing.T, displayName string) []byte {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	return login.EncodeOffline(
		login.IdentityData{DisplayName: displayName, Identity: uuid.New().String()},
		login.ClientData{GameVersion: "1.20.10"},
		key,
	)
}

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)
	c, conn := h.connect(t)

	c.write(&bpacket.RequestNetworkSettings{ClientProtocol: 594})
	ns, ok := c.read().(*bpacket.NetworkSettings)
	require.True(t, ok)
	assert.Equal(t, uint16(256), ns.CompressionThreshold)
	assert.Equal(t, bpacket.CompressionFlate, ns.CompressionAlgorithm)
	c.compress()

	c.write(&bpacket.Login{ClientProtocol: 594, ConnectionRequest: loginRequest(t, "Steve")})

	s := h.server
	hs, ok := s.read().(*jpacket.Handshake)
	require.True(t, ok)
	assert.Equal(t, "java.example.com", hs.ServerAddress)
	assert.Equal(t, uint16(25565), hs.Port)
	s.setState(state.Login)
	start, ok := s.read().(*jpacket.LoginStart)
	require.True(t, ok)
	assert.Equal(t, ".Steve", start.Username)
	assert.Equal(t, uuid.OfflinePlayerUUID(".Steve"), start.HolderID)
	s.write(&jpacket.LoginSuccess{UUID: start.HolderID, Username: start.Username})
	s.setState(state.Play)

	assert.Equal(t, &bpacket.PlayStatus{Status: bpacket.PlayStatusLoginSuccess}, c.read())
	assert.Eventually(t, func() bool { return h.proxy.PlayerCount() == 1 }, timeout, 10*time.Millisecond)

	s.write(&jpacket.KeepAlive{RandomID: 42})
	assert.Equal(t, &jpacket.KeepAlive{RandomID: 42}, s.read())

	s.write(&jpacket.Disconnect{Reason: `{"text":"bye"}`})
	assert.Equal(t, &bpacket.Disconnect{Message: "bye"}, c.read())
	assert.Eventually(t, conn.isClosed, timeout, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return h.proxy.PlayerCount() == 0 }, timeout, 10*time.Millisecond)
}

func TestLegacyLogin(t *testing.T) {
	h := newHarness(t, nil)
	c, _ := h.connect(t)

	// clients before 1.19.30 compress from the first batch
	c.compress()
	c.write(&bpacket.Login{ClientProtocol: 503, ConnectionRequest: loginRequest(t, "Alex Smith")})

	_, ok := h.server.read().(*jpacket.Handshake)
	require.True(t, ok)
	h.server.setState(state.Login)
	start, ok := h.server.read().(*jpacket.LoginStart)
	require.True(t, ok)
	assert.Equal(t, ".Alex_Smith", start.Username)
}

func TestUnsupportedVersion(t *testing.T) {
	tests := []struct {
		protocol int32
		status   int32
	}{
		{protocol: 475, status: bpacket.PlayStatusLoginFailedClient},
		{protocol: 999, status: bpacket.PlayStatusLoginFailedServer},
	}
	for _, tt := range tests {
		h := newHarness(t, nil)
		c, conn := h.connect(t)
		c.write(&bpacket.RequestNetworkSettings{ClientProtocol: tt.protocol})
		assert.Equal(t, &bpacket.PlayStatus{Status: tt.status}, c.read(), "protocol %d", tt.protocol)
		assert.Eventually(t, conn.isClosed, timeout, 10*time.Millisecond)
	}
}

func TestInvalidLogin(t *testing.T) {
	h := newHarness(t, nil)
	c, conn := h.connect(t)
	c.write(&bpacket.RequestNetworkSettings{ClientProtocol: 594})
	c.read()
	c.compress()
	c.write(&bpacket.Login{ClientProtocol: 594, ConnectionRequest: []byte("not a chain")})
	assert.Equal(t, &bpacket.Disconnect{Message: "Invalid login"}, c.read())
	assert.Eventually(t, conn.isClosed, timeout, 10*time.Millisecond)
}

func TestOnlineModeRejectsOfflineLogin(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.OnlineMode = true })
	c, conn := h.connect(t)
	c.write(&bpacket.RequestNetworkSettings{ClientProtocol: 594})
	c.read()
	c.compress()
	c.write(&bpacket.Login{ClientProtocol: 594, ConnectionRequest: loginRequest(t, "Steve")})
	d, ok := c.read().(*bpacket.Disconnect)
	require.True(t, ok)
	assert.Contains(t, d.Message, "Xbox Live")
	assert.Eventually(t, conn.isClosed, timeout, 10*time.Millisecond)
}

func TestLoginTimeout(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.LoginTimeout = 50 * time.Millisecond })
	c, conn := h.connect(t)
	assert.Equal(t, &bpacket.Disconnect{Message: "Login timed out"}, c.read())
	assert.Eventually(t, conn.isClosed, timeout, 10*time.Millisecond)
}

func TestRequiresRestart(t *testing.T) {
	base := config.DefaultConfig
	tests := []struct {
		name          string
		modify        func(c *config.Config)
		shouldRestart bool
	}{
		{name: "no changes", modify: func(*config.Config) {}},
		{name: "motd change", modify: func(c *config.Config) { c.Motd = "other" }},
		{name: "quota change", modify: func(c *config.Config) { c.Quota.Connections.Burst = 1 }},
		{name: "username format change", modify: func(c *config.Config) { c.UsernameFormat = "bedrock_%s" }},
		{name: "bind change", modify: func(c *config.Config) { c.Bind = "0.0.0.0:19133" }, shouldRestart: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.modify(&next)
			assert.Equal(t, tt.shouldRestart, requiresRestart(&base, &next))
		})
	}
	assert.True(t, requiresRestart(nil, &base))
}

func TestPongData(t *testing.T) {
	c := config.DefaultConfig
	c.Motd = "My;Bridge\nServer"
	got := string(pongData(&c, 3, 42, &net.UDPAddr{IP: net.IPv4zero, Port: 19133}))
	assert.Equal(t, "MCPE;MyBridge Server;594;1.20.10;3;100;42;Bridge;Survival;1;19133;19133;", got)
	assert.True(t, strings.HasSuffix(got, ";"))
}

func TestJavaName(t *testing.T) {
	assert.Equal(t, ".Steve", javaName(".%s", "Steve"))
	assert.Equal(t, ".Alex_Smith", javaName(".%s", "Alex Smith"))
	assert.Equal(t, "bedrock_VeryLong", javaName("bedrock_%s", "VeryLongName"))
	assert.Equal(t, ".Zoe", javaName(".%s", "Zoë"))
	assert.Equal(t, ".Snow_Man", javaName(".%s", "Snow☃Man"))
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
