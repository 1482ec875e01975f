// Package config contains the configuration of the Bedrock edition listener.
package config

import (
	"time"

	"go.minekube.com/bridge/pkg/internal/addrquota"
)

// DefaultConfig provides default settings for the Bedrock listener.
var DefaultConfig = Config{
	Bind:                 "0.0.0.0:19132",
	Motd:                 "§bA Bridge Server",
	MaxPlayers:           100,
	UsernameFormat:       ".%s", // Prefix Bedrock usernames with "." to avoid conflicts
	OnlineMode:           false,
	CompressionThreshold: 256,
	LoginTimeout:         30 * time.Second,
	ReadTimeout:          30 * time.Second,
	Quota: Quota{
		Connections: addrquota.Settings{
			Enabled:    true,
			OPS:        5,
			Burst:      10,
			MaxEntries: 1000,
		},
	},
}

// Config configures the RakNet listener Bedrock clients connect to.
type Config struct {
	Bind       string `yaml:"bind"`       // UDP address to listen on
	Motd       string `yaml:"motd"`       // Server name shown in the client's server list
	MaxPlayers int    `yaml:"maxPlayers"` // Shown in the server list, zero hides it

	// UsernameFormat formats the Bedrock display name to the Java username, e.g. ".%s".
	UsernameFormat string `yaml:"usernameFormat"`
	// OnlineMode requires clients to be authenticated by Xbox Live.
	OnlineMode bool `yaml:"onlineMode"`

	// CompressionThreshold is the batch size from which batches are compressed.
	CompressionThreshold uint16 `yaml:"compressionThreshold"`
	// LoginTimeout bounds the time from connecting until the player spawned.
	LoginTimeout time.Duration `yaml:"loginTimeout"`
	// ReadTimeout closes connections of silent clients.
	ReadTimeout time.Duration `yaml:"readTimeout"`

	Quota Quota `yaml:"quota"`
}

// Quota limits the rate of connection attempts per client address block.
type Quota struct {
	Connections addrquota.Settings `yaml:"connections"`
}
