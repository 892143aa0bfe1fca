package httpclient

import (
	"fmt"
	"time"
)

const (
	defaultDialTimeout = 30 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// DialTimeout bounds connection establishment. Defaults to 30s.
	// Streaming responses have no overall deadline; callers bound them with
	// the request context.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// Auth configures default authentication applied to all requests.
	// Individual requests can override this.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Cookies enables a cookie jar so cookies set by the server are sent on
	// later requests made through the same client.
	Cookies bool `yaml:"cookies" mapstructure:"cookies"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DialTimeout <= 0 {
		return fmt.Errorf("httpclient: dial_timeout must be positive")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return c.Auth.Validate()
}
