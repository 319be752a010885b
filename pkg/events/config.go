package events

import (
	"fmt"
	"time"

	"github.com/JaimeStill/intake/pkg/envx"
)

// Config holds RabbitMQ publisher settings. An empty URL disables publishing.
type Config struct {
	URL         string `toml:"url"`
	Exchange    string `toml:"exchange"`
	RoutingKey  string `toml:"routing_key"`
	Producer    string `toml:"producer"`
	PoolSize    int    `toml:"pool_size"`
	ConnTimeout string `toml:"conn_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL         string
	Exchange    string
	RoutingKey  string
	Producer    string
	PoolSize    string
	ConnTimeout string
}

// Enabled reports whether a broker URL is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// ConnTimeoutDuration returns ConnTimeout as a time.Duration.
func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Exchange != "" {
		c.Exchange = overlay.Exchange
	}
	if overlay.RoutingKey != "" {
		c.RoutingKey = overlay.RoutingKey
	}
	if overlay.Producer != "" {
		c.Producer = overlay.Producer
	}
	if overlay.PoolSize != 0 {
		c.PoolSize = overlay.PoolSize
	}
	if overlay.ConnTimeout != "" {
		c.ConnTimeout = overlay.ConnTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Exchange == "" {
		c.Exchange = "intake.events"
	}
	if c.RoutingKey == "" {
		c.RoutingKey = RunCompletedType
	}
	if c.Producer == "" {
		c.Producer = "intake"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	if c.ConnTimeout == "" {
		c.ConnTimeout = "10s"
	}
}

func (c *Config) loadEnv(env *Env) {
	envx.String(env.URL, &c.URL)
	envx.String(env.Exchange, &c.Exchange)
	envx.String(env.RoutingKey, &c.RoutingKey)
	envx.String(env.Producer, &c.Producer)
	envx.Int(env.PoolSize, &c.PoolSize)
	envx.String(env.ConnTimeout, &c.ConnTimeout)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be positive")
	}
	return nil
}
