// Package config contains the configuration of the Java server connection.
package config

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"go.minekube.com/bridge/pkg/edition/java/backend"
	"go.minekube.com/bridge/pkg/util/validation"
)

// DefaultConfig is a default Config.
var DefaultConfig = Config{
	Addr:              "localhost:25565",
	Forwarding:        backend.LegacyForwarding,
	ConnectionTimeout: 5 * time.Second,
	Compression: Compression{
		Level: -1,
	},
}

// Config configures the connection to the Java server players are bridged to.
type Config struct {
	Addr string `yaml:"addr"` // The Java server address.
	// Forwarding is how the Bedrock player's address and identity reach the server.
	// The server must be in offline mode and accept this forwarding.
	Forwarding        backend.ForwardingMode `yaml:"forwarding"`
	ConnectionTimeout time.Duration          `yaml:"connectionTimeout"` // Timeout of dialing and login.
	Compression       Compression            `yaml:"compression"`
}

// Compression configures the compression of packets sent to the server.
type Compression struct {
	Level int `yaml:"level"` // zlib level 1..9, 0 and -1 use the default level
}

// Validate validates the Java server configuration.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	if c == nil {
		e("config must not be nil")
		return
	}

	if c.Addr == "" {
		e("Java server address cannot be empty")
	} else if err := validation.ValidHostPort(c.Addr); err != nil {
		e("Invalid Java server address %q: %v", c.Addr, err)
	}

	if !c.Forwarding.Valid() {
		e("Unknown forwarding mode %q, must be one of %s,%s,%s", c.Forwarding,
			backend.NoForwarding, backend.LegacyForwarding, backend.ProxyProtocolForwarding)
	} else if c.Forwarding == backend.NoForwarding {
		w("Player forwarding is disabled, the server will see all players connecting from the bridge")
	}

	if c.ConnectionTimeout < 0 {
		e("Connection timeout must not be negative")
	} else if c.ConnectionTimeout == 0 {
		w("Connection timeout is 0, connecting to an unresponsive server blocks the player forever")
	}

	if c.Compression.Level < -1 || c.Compression.Level > 9 {
		e("Unsupported compression level %d: must be -1..9", c.Compression.Level)
	} else if c.Compression.Level == 1 {
		w("Compression level 1 trades bandwidth for CPU, packets to the server are barely compressed")
	}
	return warns, errs
}

// BackendOptions returns the options to connect players to the server.
func (c *Config) BackendOptions(log logr.Logger) *backend.Options {
	return &backend.Options{
		Addr:             c.Addr,
		Forwarding:       c.Forwarding,
		Timeout:          c.ConnectionTimeout,
		CompressionLevel: c.Compression.Level,
		Logger:           log,
	}
}
