package config

import (
	"fmt"
	"strings"

	"go.minekube.com/bridge/pkg/util/validation"
)

// Validate validates the Bedrock edition configuration.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	w := func(m string, args ...any) { warns = append(warns, fmt.Errorf(m, args...)) }

	if c == nil {
		e("config must not be nil")
		return
	}

	if c.Bind == "" {
		e("Bedrock bind address cannot be empty")
	} else if err := validation.ValidHostPort(c.Bind); err != nil {
		e("Invalid Bedrock bind address %q: %v", c.Bind, err)
	}

	if c.UsernameFormat != "" && !strings.Contains(c.UsernameFormat, "%s") {
		e("Username format must contain %%s placeholder")
	}
	if c.UsernameFormat == "%s" {
		w("Username format %q lets Bedrock players take the names of Java players", c.UsernameFormat)
	}

	if c.MaxPlayers < 0 {
		e("Max players must not be negative, got %d", c.MaxPlayers)
	}
	if c.LoginTimeout < 0 || c.ReadTimeout < 0 {
		e("Timeouts must not be negative")
	}
	if c.CompressionThreshold == 0 {
		w("Compression threshold 0 compresses every batch")
	}

	if q := c.Quota.Connections; q.Enabled {
		if q.OPS <= 0 {
			e("Invalid connection quota ops %v, must be > 0", q.OPS)
		}
		if q.Burst < 1 {
			e("Invalid connection quota burst %d, must be >= 1", q.Burst)
		}
		if q.MaxEntries < 1 {
			e("Invalid connection quota max entries %d, must be >= 1", q.MaxEntries)
		}
	}

	if !c.OnlineMode {
		w("Bedrock online mode is disabled, clients are not authenticated by Xbox Live")
	}
	return warns, errs
}
