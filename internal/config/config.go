// Package config reads the process configuration of the plugin from the
// environment. Per request settings arrive in the pluginConfig of each request
// instead.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable read by Load.
const Prefix = "ARTIFACTSIGNING"

var errPartialLocalSigner = errors.New(Prefix + "_LOCAL_KEY_FILE and " + Prefix + "_LOCAL_CHAIN_FILE must be set together")

// Config is the environment driven configuration of the plugin process.
type Config struct {
	// LogFile receives the diagnostic log. Logging is off when empty since
	// stdout and stderr carry protocol messages.
	LogFile  string `envconfig:"LOG_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	PollFrequency time.Duration `envconfig:"POLL_FREQUENCY" default:"1s"`
	SignTimeout   time.Duration `envconfig:"SIGN_TIMEOUT" default:"5m"`

	LocalKeyFile   string `envconfig:"LOCAL_KEY_FILE"`
	LocalChainFile string `envconfig:"LOCAL_CHAIN_FILE"`
}

// Load processes the ARTIFACTSIGNING_* environment variables.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("processing environment config: %w", err)
	}
	if (c.LocalKeyFile == "") != (c.LocalChainFile == "") {
		return nil, errPartialLocalSigner
	}
	return &c, nil
}

// Offline reports whether digests are signed with the local PEM key instead of
// the Artifact Signing service.
func (c *Config) Offline() bool {
	return c.LocalKeyFile != "" && c.LocalChainFile != ""
}
