package config

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"go.minekube.com/bridge/pkg/edition/java/backend"
)

func TestDefaultConfigValid(t *testing.T) {
	c := DefaultConfig
	warns, errs := c.Validate()
	assert.Empty(t, errs)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Error(), "bedrock: ")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		prefix string
	}{
		{name: "health bind", modify: func(c *Config) {
			c.HealthService.Enabled = true
			c.HealthService.Bind = "9090"
		}},
		{name: "skins url", modify: func(c *Config) { c.Skins.ProfileAPIURL = "ftp://example.com/" }},
		{name: "skins ttl", modify: func(c *Config) { c.Skins.CacheTTL = -time.Second }},
		{name: "skins burst", modify: func(c *Config) { c.Skins.Burst = 0 }},
		{name: "bedrock", modify: func(c *Config) { c.Bedrock.Bind = "" }, prefix: "bedrock: "},
		{name: "java", modify: func(c *Config) { c.Java.Forwarding = "bungeeguard" }, prefix: "java: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig
			tt.modify(&c)
			_, errs := c.Validate()
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.prefix)
		})
	}

	var c *Config
	_, errs := c.Validate()
	assert.NotEmpty(t, errs)
}

func TestUnlimitedSkinsNeedNoBurst(t *testing.T) {
	c := DefaultConfig
	c.Skins.RateLimit = 0
	c.Skins.Burst = 0
	_, errs := c.Validate()
	assert.Empty(t, errs)
}

func TestConfigYAML(t *testing.T) {
	c := DefaultConfig
	err := yaml.Unmarshal([]byte(`
bedrock:
  bind: 0.0.0.0:19133
java:
  addr: mc.example.com:25566
  forwarding: proxy-protocol
skins:
  cacheTtl: 1h
healthService:
  enabled: true
`), &c)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:19133", c.Bedrock.Bind)
	assert.Equal(t, DefaultConfig.Bedrock.UsernameFormat, c.Bedrock.UsernameFormat)
	assert.Equal(t, "mc.example.com:25566", c.Java.Addr)
	assert.Equal(t, backend.ProxyProtocolForwarding, c.Java.Forwarding)
	assert.Equal(t, time.Hour, c.Skins.CacheTTL)
	assert.True(t, c.HealthService.Enabled)
	assert.Equal(t, "0.0.0.0:9090", c.HealthService.Bind)
}

func TestSkinOptions(t *testing.T) {
	c := DefaultConfig
	opts := c.SkinOptions(logr.Discard())
	assert.Equal(t, c.Skins.SessionServerURL, opts.SessionServerURL)
	assert.Equal(t, rate.Limit(10), opts.RateLimit)
	assert.Equal(t, 20, opts.Burst)
	assert.Equal(t, 10*time.Second, opts.Client.Timeout)
}
