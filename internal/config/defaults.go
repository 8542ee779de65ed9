package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPIURL            = "https://api.revolt.chat"
	DefaultGatewayFormat     = "json"
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultHeartbeatTimeout  = 60 * time.Second
	DefaultHandshakeTimeout  = 60 * time.Second
	DefaultMaxMessages       = 1000
)

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.GatewayFormat == "" {
		c.GatewayFormat = DefaultGatewayFormat
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.MaxMessages == 0 {
		c.MaxMessages = DefaultMaxMessages
	}
}
