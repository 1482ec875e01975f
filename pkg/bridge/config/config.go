// Package config contains the root configuration of the bridge.
package config

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	bconfig "go.minekube.com/bridge/pkg/edition/bedrock/config"
	jconfig "go.minekube.com/bridge/pkg/edition/java/config"
	"go.minekube.com/bridge/pkg/skin"
	"go.minekube.com/bridge/pkg/util/validation"
)

// DefaultConfig is a default Config.
var DefaultConfig = Config{
	Bedrock: bconfig.DefaultConfig,
	Java:    jconfig.DefaultConfig,
	Blocks: Blocks{
		File:  "",
		Watch: true,
	},
	Skins: Skins{
		SessionServerURL: skin.DefaultSessionServerURL,
		ProfileAPIURL:    skin.DefaultProfileAPIURL,
		Timeout:          10 * time.Second,
		CacheTTL:         skin.DefaultCacheTTL,
		ErrorTTL:         skin.DefaultErrorTTL,
		RateLimit:        10,
		Burst:            20,
	},
	HealthService: HealthService{
		Enabled: false,
		Bind:    "0.0.0.0:9090",
	},
	AutoReload: true,
}

// Config is the root configuration of the bridge.
type Config struct {
	// Bedrock configures the listener Bedrock clients connect to.
	Bedrock bconfig.Config `yaml:"bedrock"`
	// Java configures the connection to the Java server.
	Java jconfig.Config `yaml:"java"`
	// See Blocks struct.
	Blocks Blocks `yaml:"blocks"`
	// See Skins struct.
	Skins Skins `yaml:"skins"`
	// See HealthService struct.
	HealthService HealthService `yaml:"healthService"`
	// See Telemetry struct.
	Telemetry Telemetry `yaml:"telemetry"`
	// AutoReload reloads the bedrock section when the config file changes.
	// Changing the bind address restarts the listener.
	AutoReload bool `yaml:"autoReload"`
	// Debug enables development logging.
	Debug bool `yaml:"debug"`
}

// Blocks configures the custom blocks shown for player skulls.
type Blocks struct {
	File  string `yaml:"file"`  // Path of the custom blocks file, none if empty.
	Watch bool   `yaml:"watch"` // Reload the file when it changes.
}

// Skins configures the lookup of player skins at the Mojang APIs.
type Skins struct {
	SessionServerURL string        `yaml:"sessionServerUrl"`
	ProfileAPIURL    string        `yaml:"profileApiUrl"`
	Timeout          time.Duration `yaml:"timeout"`  // Timeout of a single request.
	CacheTTL         time.Duration `yaml:"cacheTtl"` // How long resolved skins are cached.
	ErrorTTL         time.Duration `yaml:"errorTtl"` // How long failed lookups are cached.
	// RateLimit limits requests per second, unlimited if 0.
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
}

// HealthService is a GRPC health probe service for use with Kubernetes pods.
// (https://github.com/grpc-ecosystem/grpc-health-probe)
type HealthService struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

// Telemetry enables OpenTelemetry.
// Exporters are configured with the standard OTEL_* environment variables.
type Telemetry struct {
	Metrics bool `yaml:"metrics"`
	Traces  bool `yaml:"traces"`
}

// Validate validates a Config and the configs of both editions.
func (c *Config) Validate() (warns []error, errs []error) {
	e := func(m string, args ...any) { errs = append(errs, fmt.Errorf(m, args...)) }
	if c == nil {
		e("config must not be nil")
		return
	}

	if c.HealthService.Enabled {
		if err := validation.ValidHostPort(c.HealthService.Bind); err != nil {
			e("Invalid health probe bind address %q: %v", c.HealthService.Bind, err)
		}
	}

	for name, u := range map[string]string{
		"session server": c.Skins.SessionServerURL,
		"profile API":    c.Skins.ProfileAPIURL,
	} {
		if u == "" {
			continue // default
		}
		if parsed, err := url.Parse(u); err != nil {
			e("Invalid skins %s URL %q: %v", name, u, err)
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			e("Invalid skins %s URL %q: scheme must be http or https", name, u)
		}
	}
	if c.Skins.Timeout < 0 || c.Skins.CacheTTL < 0 || c.Skins.ErrorTTL < 0 {
		e("Skins timeouts must not be negative")
	}
	if c.Skins.RateLimit < 0 {
		e("Skins rate limit must not be negative")
	} else if c.Skins.RateLimit > 0 && c.Skins.Burst < 1 {
		e("Skins burst must be at least 1 when rate limited")
	}

	prefix := func(p string, errs []error) (pErrs []error) {
		for _, err := range errs {
			pErrs = append(pErrs, fmt.Errorf("%s: %w", p, err))
		}
		return
	}

	warns2, errs2 := c.Bedrock.Validate()
	warns = append(warns, prefix("bedrock", warns2)...)
	errs = append(errs, prefix("bedrock", errs2)...)

	warns2, errs2 = c.Java.Validate()
	warns = append(warns, prefix("java", warns2)...)
	errs = append(errs, prefix("java", errs2)...)
	return
}

// SkinOptions returns the options of the skin provider.
func (c *Config) SkinOptions(log logr.Logger) skin.Options {
	return skin.Options{
		SessionServerURL: c.Skins.SessionServerURL,
		ProfileAPIURL:    c.Skins.ProfileAPIURL,
		Client:           &http.Client{Timeout: c.Skins.Timeout},
		CacheTTL:         c.Skins.CacheTTL,
		ErrorTTL:         c.Skins.ErrorTTL,
		RateLimit:        rate.Limit(c.Skins.RateLimit),
		Burst:            c.Skins.Burst,
		Logger:           log,
	}
}
