package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHostPort(t *testing.T) {
	host, port, err := SplitHostPort("localhost:25565")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, uint16(25565), port)

	host, port, err = SplitHostPort("localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Zero(t, port)

	_, _, err = SplitHostPort("localhost:70000")
	require.Error(t, err)
}

func TestSplitHostPort_isMissingPortErr(t *testing.T) {
	_, _, err := net.SplitHostPort("host-without-port")
	require.True(t, isMissingPortErr(err))
}

func TestTCPAddr(t *testing.T) {
	udp := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 19132}
	assert.Equal(t, "10.0.0.1:19132", TCPAddr(udp).String())

	tcp := &net.TCPAddr{IP: net.IPv6loopback, Port: 1}
	assert.Same(t, tcp, TCPAddr(tcp))

	assert.Nil(t, TCPAddr(nil))
	assert.Nil(t, TCPAddr(&net.UnixAddr{Name: "/tmp/sock", Net: "unix"}))
}
