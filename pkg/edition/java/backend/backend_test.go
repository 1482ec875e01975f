package backend

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/pires/go-proxyproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/bridge/pkg/edition/java/proto/codec"
	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/edition/java/proto/state"
	"go.minekube.com/bridge/pkg/proto"
	"go.minekube.com/bridge/pkg/util/uuid"
)

type pipeDialer struct{ conn net.Conn }

func (d *pipeDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return d.conn, nil
}

// server is the Java server end of a pipe.
type server struct {
	t   *testing.T
	enc *codec.Encoder
	dec *codec.Decoder
}

func newServer(t *testing.T, c net.Conn) *server {
	log := testr.New(t)
	return &server{
		t:   t,
		enc: codec.NewEncoder(c, proto.ClientBound, log),
		dec: codec.NewDecoder(c, proto.ServerBound, log),
	}
}

func (s *server) read() proto.Packet {
	pc, err := s.dec.Decode()
	if !assert.NoError(s.t, err) {
		return nil
	}
	return pc.Packet
}

func (s *server) write(p proto.Packet) {
	_, err := s.enc.WritePacket(p)
	assert.NoError(s.t, err)
}

func (s *server) setState(r *state.Registry) {
	assert.NoError(s.t, s.enc.SetState(r))
	assert.NoError(s.t, s.dec.SetState(r))
}

var testPlayer = &Player{
	ID:   uuid.Derive("", "Steve"),
	Name: "Steve",
	Addr: &net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 19132},
}

func TestConnect(t *testing.T) {
	client, srv := net.Pipe()
	s := newServer(t, srv)

	done := make(chan struct{})
	go func() {
		defer close(done)
		hs, ok := s.read().(*packet.Handshake)
		if assert.True(t, ok) {
			assert.Equal(t, int32(763), hs.ProtocolVersion)
			assert.Equal(t, "play.example.com", hs.ServerAddress)
			assert.Equal(t, uint16(25566), hs.Port)
			assert.Equal(t, packet.HandshakeLogin, hs.NextStatus)
		}
		s.setState(state.Login)
		assert.Equal(t, &packet.LoginStart{Username: "Steve", HolderID: testPlayer.ID}, s.read())

		s.write(&packet.SetCompression{Threshold: 16})
		assert.NoError(t, s.enc.SetCompression(16, -1))
		s.dec.SetCompressionThreshold(16)

		s.write(&packet.LoginPluginRequest{MessageID: 3, Channel: "velocity:player_info"})
		assert.Equal(t, &packet.LoginPluginResponse{MessageID: 3}, s.read())

		s.write(&packet.LoginSuccess{UUID: testPlayer.ID, Username: "Steve"})
		s.setState(state.Play)
		s.write(&packet.SystemChat{Content: `{"text":"` + strings.Repeat("welcome ", 10) + `"}`})
	}()

	conn, err := Connect(context.Background(), &Options{
		Addr:    "play.example.com:25566",
		Timeout: 5 * time.Second,
		Dialer:  &pipeDialer{conn: client},
		Logger:  testr.New(t),
	}, testPlayer)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "Steve", conn.Profile().Username)

	pc, err := conn.ReadPacket()
	require.NoError(t, err)
	chat, ok := pc.Packet.(*packet.SystemChat)
	require.True(t, ok)
	assert.Contains(t, chat.Content, "welcome")
	<-done

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}

func TestConnectLoginDisconnect(t *testing.T) {
	client, srv := net.Pipe()
	s := newServer(t, srv)
	go func() {
		s.read()
		s.setState(state.Login)
		s.read()
		s.write(&packet.LoginDisconnect{Reason: `{"text":"whitelist"}`})
	}()

	_, err := Connect(context.Background(), &Options{
		Addr:   "localhost:25565",
		Dialer: &pipeDialer{conn: client},
		Logger: testr.New(t),
	}, testPlayer)
	require.ErrorIs(t, err, ErrLoginDisconnect)
	assert.Contains(t, err.Error(), "whitelist")
}

func TestConnectTimeout(t *testing.T) {
	client, srv := net.Pipe()
	defer srv.Close()

	start := time.Now()
	_, err := Connect(context.Background(), &Options{
		Addr:    "localhost:25565",
		Timeout: 50 * time.Millisecond,
		Dialer:  &pipeDialer{conn: client},
		Logger:  testr.New(t),
	}, testPlayer)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProxyHeader(t *testing.T) {
	v4 := &net.UDPAddr{IP: net.IPv4(104, 28, 243, 188), Port: 19132}
	v6 := &net.TCPAddr{IP: net.IPv6loopback, Port: 25565}

	testCases := []struct {
		name      string
		src, dst  net.Addr
		transport proxyproto.AddressFamilyAndProtocol
	}{
		{"v4 to v4", v4, &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 25565}, proxyproto.TCPv4},
		{"v4 to v6 uses v6", v4, v6, proxyproto.TCPv6},
		{"v6 to v6", &net.UDPAddr{IP: net.IPv6loopback, Port: 1}, v6, proxyproto.TCPv6},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header, err := proxyHeader(tc.src, tc.dst)
			require.NoError(t, err)
			assert.Equal(t, tc.transport, header.TransportProtocol)

			buf := new(bytes.Buffer)
			_, err = header.WriteTo(buf)
			require.NoError(t, err)
		})
	}

	_, err := proxyHeader(&net.UnixAddr{Name: "sock", Net: "unix"}, v6)
	require.Error(t, err)
}

func TestLegacyForwardingAddress(t *testing.T) {
	p := &Player{
		ID:         testPlayer.ID,
		Addr:       testPlayer.Addr,
		Properties: []packet.ProfileProperty{{Name: "textures", Value: "abc"}},
	}
	parts := strings.Split(legacyForwardingAddress("localhost:25565", p), "\000")
	require.Len(t, parts, 4)
	assert.Equal(t, "localhost:25565", parts[0])
	assert.Equal(t, "10.0.0.7", parts[1])
	assert.Equal(t, testPlayer.ID.Undashed(), parts[2])
	assert.JSONEq(t, `[{"name":"textures","value":"abc"}]`, parts[3])

	p.Properties = nil
	assert.True(t, strings.HasSuffix(legacyForwardingAddress("s", p), "[]"))
}

func TestForwardingModeValid(t *testing.T) {
	assert.True(t, LegacyForwarding.Valid())
	assert.True(t, ForwardingMode("").Valid())
	assert.False(t, ForwardingMode("velocity").Valid())
}

func TestReadPacketSkipsUndecodablePacket(t *testing.T) {
	client, srv := net.Pipe()
	s := newServer(t, srv)
	go func() {
		s.read()
		s.setState(state.Login)
		s.read()
		s.write(&packet.LoginSuccess{UUID: testPlayer.ID, Username: "Steve"})
		s.setState(state.Play)
		// keep alive (0x23) carrying 3 of its 8 bytes
		_, err := srv.Write([]byte{4, 0x23, 0x01, 0x02, 0x03})
		assert.NoError(t, err)
		s.write(&packet.KeepAlive{RandomID: 5})
	}()

	conn, err := Connect(context.Background(), &Options{
		Addr:    "localhost:25565",
		Timeout: 5 * time.Second,
		Dialer:  &pipeDialer{conn: client},
		Logger:  testr.New(t),
	}, testPlayer)
	require.NoError(t, err)
	defer conn.Close()

	pc, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, &packet.KeepAlive{RandomID: 5}, pc.Packet)
}
