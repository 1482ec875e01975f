package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variables overriding config values,
// e.g. BRIDGE_JAVA_ADDR overrides java.addr.
const EnvPrefix = "BRIDGE"

// Load reads the config file at path over DefaultConfig.
// Environment variables override both. An empty path reads no file.
// The returned config is not validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv() // read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Every key must be known to viper to be overridable by the environment.
	defaults, err := yaml.Marshal(&DefaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error encoding default config: %w", err)
	}
	v.SetConfigType("yaml")
	if err = v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("error reading default config: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err = v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %q: %w", path, err)
		}
	}

	var c Config
	if err = v.Unmarshal(&c, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return &c, nil
}
