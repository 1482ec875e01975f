package validation

import (
	"fmt"
	"net"
	"strconv"
)

// ValidHostPort validates an address of the form host:port.
// The host may be empty to listen on all interfaces.
func ValidHostPort(hostAndPort string) error {
	_, port, err := net.SplitHostPort(hostAndPort)
	if err != nil {
		return err
	}
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 0xFFFF {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
