package backend

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/pires/go-proxyproto"

	"go.minekube.com/bridge/pkg/edition/java/proto/packet"
	"go.minekube.com/bridge/pkg/util/netutil"
)

// ForwardingMode is how the player address and identity reach the Java server.
type ForwardingMode string

const (
	// NoForwarding sends nothing, the server sees the bridge address.
	NoForwarding ForwardingMode = "none"
	// LegacyForwarding is the BungeeCord scheme of injecting the player
	// into the handshake server address.
	LegacyForwarding ForwardingMode = "legacy"
	// ProxyProtocolForwarding writes a HAProxy PROXY v2 header before the handshake.
	ProxyProtocolForwarding ForwardingMode = "proxy-protocol"
)

// Valid reports whether m is a known ForwardingMode.
func (m ForwardingMode) Valid() bool {
	switch m {
	case NoForwarding, LegacyForwarding, ProxyProtocolForwarding, "":
		return true
	}
	return false
}

// proxyHeader returns a PROXY header for the player address src connecting to dst.
func proxyHeader(src, dst net.Addr) (*proxyproto.Header, error) {
	srcAddr, dstAddr := netutil.TCPAddr(src), netutil.TCPAddr(dst)
	if srcAddr == nil || dstAddr == nil {
		return nil, fmt.Errorf("cannot forward non-ip addresses %v -> %v", src, dst)
	}
	header := proxyproto.HeaderProxyFromAddrs(2, srcAddr, dstAddr)

	// on mismatch v4 to v6: use v6
	if len(srcAddr.IP.To4()) == net.IPv4len && dstAddr.IP.To4() == nil {
		header.TransportProtocol = proxyproto.TCPv6
		header.SourceAddr = &net.TCPAddr{IP: srcAddr.IP.To16(), Port: srcAddr.Port}
	}
	return header, nil
}

// legacyForwardingAddress builds the BungeeCord handshake address:
// server address, player ip, undashed player id and the profile properties,
// separated by null bytes.
func legacyForwardingAddress(serverAddr string, p *Player) string {
	host, _ := netutil.HostPort(p.Addr)
	props := p.Properties
	if props == nil {
		props = []packet.ProfileProperty{}
	}
	b, err := json.Marshal(props)
	if err != nil { // should never happen
		panic(err)
	}
	return strings.Join([]string{serverAddr, host, p.ID.Undashed(), string(b)}, "\000")
}
