package middleware

import (
	"fmt"

	"github.com/JaimeStill/intake/pkg/envx"
)

// AuthConfig holds OIDC bearer-token verification settings for the API.
type AuthConfig struct {
	Enabled   bool     `toml:"enabled"`
	IssuerURL string   `toml:"issuer_url"`
	ClientID  string   `toml:"client_id"`
	Public    []string `toml:"public"`
}

// AuthEnv maps auth config fields to environment variable names for override injection.
type AuthEnv struct {
	Enabled   string
	IssuerURL string
	ClientID  string
	Public    string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AuthConfig) Finalize(env *AuthEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies; strings and
// slices only when set.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	c.Enabled = overlay.Enabled

	if overlay.IssuerURL != "" {
		c.IssuerURL = overlay.IssuerURL
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.Public != nil {
		c.Public = overlay.Public
	}
}

func (c *AuthConfig) loadDefaults() {
	if c.Public == nil {
		c.Public = []string{"/categories", "/openapi.json"}
	}
}

func (c *AuthConfig) loadEnv(env *AuthEnv) {
	envx.Bool(env.Enabled, &c.Enabled)
	envx.String(env.IssuerURL, &c.IssuerURL)
	envx.String(env.ClientID, &c.ClientID)
	envx.List(env.Public, &c.Public)
}

func (c *AuthConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.IssuerURL == "" {
		return fmt.Errorf("issuer_url required when auth is enabled")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id required when auth is enabled")
	}
	return nil
}
