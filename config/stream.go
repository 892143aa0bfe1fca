package config

import (
	"fmt"
	"time"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/validation"
)

const (
	defaultSSERetry       = 3 * time.Second
	defaultReconnectDelay = time.Second
)

// Config is the top-level streamkit configuration file shape.
//
//	logging:
//	  level: debug
//	streams:
//	  ticker:
//	    mode: sse
//	    endpoint: https://api.example.com/ticker
type Config struct {
	Logging logger.Config           `yaml:"logging" mapstructure:"logging"`
	Streams map[string]StreamConfig `yaml:"streams" mapstructure:"streams"`
}

// ApplyDefaults applies defaults to logging and every stream. A stream
// without a name takes its map key.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()
	for key, s := range c.Streams {
		if s.Name == "" {
			s.Name = key
		}
		s.ApplyDefaults()
		c.Streams[key] = s
	}
}

// Validate validates logging and every stream.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	for key, s := range c.Streams {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("streams.%s: %w", key, err)
		}
	}
	return nil
}

// Stream returns the named stream configuration.
func (c *Config) Stream(name string) (StreamConfig, bool) {
	s, ok := c.Streams[name]
	return s, ok
}

// StreamConfig is the file/env representation of a stream definition.
// Viper lowercases map keys, so header names and query keys arrive lowercased.
type StreamConfig struct {
	Name      string            `yaml:"name" mapstructure:"name"`
	Mode      string            `yaml:"mode" mapstructure:"mode"`
	Endpoint  string            `yaml:"endpoint" mapstructure:"endpoint"`
	Headers   map[string]string `yaml:"headers" mapstructure:"headers"`
	Query     map[string]string `yaml:"query" mapstructure:"query"`
	Timeout   time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Auth      AuthConfig        `yaml:"auth" mapstructure:"auth"`
	SSE       SSEConfig         `yaml:"sse" mapstructure:"sse"`
	WebSocket WebSocketConfig   `yaml:"websocket" mapstructure:"websocket"`
	Meta      map[string]any    `yaml:"meta" mapstructure:"meta"`
}

// AuthConfig holds stream credentials. An empty scheme sends none.
type AuthConfig struct {
	Scheme    string `yaml:"scheme" mapstructure:"scheme"`
	Token     string `yaml:"token" mapstructure:"token"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
	Key       string `yaml:"key" mapstructure:"key"`
	KeyHeader string `yaml:"key_header" mapstructure:"key_header"`
	KeyParam  string `yaml:"key_param" mapstructure:"key_param"`
}

// SSEConfig holds Server-Sent Events settings.
type SSEConfig struct {
	WithCredentials bool          `yaml:"with_credentials" mapstructure:"with_credentials"`
	Retry           time.Duration `yaml:"retry" mapstructure:"retry"`
	Events          []string      `yaml:"events" mapstructure:"events"`
}

// WebSocketConfig holds WebSocket settings.
type WebSocketConfig struct {
	Protocols      []string      `yaml:"protocols" mapstructure:"protocols"`
	AutoReconnect  bool          `yaml:"auto_reconnect" mapstructure:"auto_reconnect"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay"`
}

// ApplyDefaults fills in zero-value fields. A zero reconnect delay in a file
// means "unset" and becomes the one second default.
func (c *StreamConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = c.Endpoint
	}
	if c.SSE.Retry <= 0 {
		c.SSE.Retry = defaultSSERetry
	}
	if c.WebSocket.ReconnectDelay <= 0 {
		c.WebSocket.ReconnectDelay = defaultReconnectDelay
	}
}

// Validate checks that the configuration describes a usable stream.
func (c *StreamConfig) Validate() error {
	v := validation.New()
	v.Required("endpoint", c.Endpoint).
		OneOf("mode", c.Mode, "ndjson", "sse", "websocket").
		NonNegative("timeout", int64(c.Timeout)).
		NonNegative("sse.retry", int64(c.SSE.Retry)).
		NonNegative("websocket.reconnect_delay", int64(c.WebSocket.ReconnectDelay)).
		OneOf("auth.scheme", c.Auth.Scheme, "", "bearer", "basic", "api_key")

	switch c.Mode {
	case "websocket":
		v.URL("endpoint", c.Endpoint, "ws", "wss")
	case "ndjson", "sse":
		v.URL("endpoint", c.Endpoint, "http", "https")
	}
	return v.Err()
}
