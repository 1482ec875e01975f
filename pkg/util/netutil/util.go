// Package netutil contains address helpers shared by the Bedrock listener
// and the Java backend connector.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// HostPort returns the split host and port of a net.Addr.
func HostPort(addr net.Addr) (host string, port uint16) {
	host, port, _ = SplitHostPort(addr.String())
	return
}

// SplitHostPort splits addr into host and port.
// A missing port is not an error and results in port 0.
func SplitHostPort(addr string) (host string, port uint16, err error) {
	var portInt int
	host, portStr, err := net.SplitHostPort(addr)
	if err == nil {
		portInt, err = strconv.Atoi(portStr)
		if err == nil && (portInt < 0 || portInt > 65535) {
			err = fmt.Errorf("port %d out of range", portInt)
		}
	} else if isMissingPortErr(err) {
		host = addr
		err = nil
	}
	return host, uint16(portInt), err
}

// TCPAddr returns addr as *net.TCPAddr keeping its IP and port.
// A RakNet client address is a *net.UDPAddr, but it is forwarded over TCP.
// Returns nil if addr has no IP host.
func TCPAddr(addr net.Addr) *net.TCPAddr {
	switch a := addr.(type) {
	case nil:
		return nil
	case *net.TCPAddr:
		return a
	case *net.UDPAddr:
		return &net.TCPAddr{IP: a.IP, Port: a.Port, Zone: a.Zone}
	}
	host, port := HostPort(addr)
	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	return &net.TCPAddr{IP: ip, Port: int(port)}
}

func isMissingPortErr(err error) bool {
	var addrErr *net.AddrError
	return err != nil && errors.As(err, &addrErr) && addrErr.Err == "missing port in address"
}
