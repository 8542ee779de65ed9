package config

import "fmt"

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.GatewayFormat {
	case "json", "msgpack":
	default:
		return fmt.Errorf("config: unknown gateway format %q", c.GatewayFormat)
	}

	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("config: heartbeat interval must be positive, got %v", c.HeartbeatInterval)
	}
	if c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("config: heartbeat timeout must be positive, got %v", c.HeartbeatTimeout)
	}
	if c.HeartbeatInterval >= c.HeartbeatTimeout {
		return fmt.Errorf("config: heartbeat interval %v must be below the timeout %v",
			c.HeartbeatInterval, c.HeartbeatTimeout)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("config: handshake timeout must be positive, got %v", c.HandshakeTimeout)
	}
	if c.MaxMessages < 0 {
		return fmt.Errorf("config: max messages must not be negative, got %d", c.MaxMessages)
	}

	return nil
}
