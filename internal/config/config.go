// Package config loads client configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the tunables of a client instance. Zero values are filled
// with defaults; Validate rejects inconsistent combinations.
type Config struct {
	// APIURL is the Delta base URL. The gateway URL is always discovered
	// through the capability-info fetch, never configured directly.
	APIURL string `env:"VOLT_API_URL"`

	// GatewayFormat selects the frame codec: "json" or "msgpack".
	GatewayFormat string `env:"VOLT_GATEWAY_FORMAT"`

	HeartbeatInterval time.Duration `env:"VOLT_HEARTBEAT_INTERVAL"`
	HeartbeatTimeout  time.Duration `env:"VOLT_HEARTBEAT_TIMEOUT"`

	// HandshakeTimeout bounds connect + authentication acknowledgment.
	HandshakeTimeout time.Duration `env:"VOLT_HANDSHAKE_TIMEOUT"`

	// MaxMessages bounds the in-memory message cache.
	MaxMessages int `env:"VOLT_MAX_MESSAGES"`
}

// Load reads configuration from the environment and applies defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the default configuration without touching the
// environment.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}
