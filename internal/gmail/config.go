package gmail

import (
	"github.com/JaimeStill/intake/pkg/envx"
)

// Config locates the OAuth client credentials and cached token for the
// Gmail API.
type Config struct {
	CredentialsFile string `toml:"credentials_file"`
	TokenFile       string `toml:"token_file"`
	User            string `toml:"user"`
}

// Env maps Config fields to environment variable names.
type Env struct {
	CredentialsFile string
	TokenFile       string
	User            string
}

// Finalize applies defaults and environment overrides.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return nil
}

// Merge overwrites fields with non-zero values from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.CredentialsFile != "" {
		c.CredentialsFile = overlay.CredentialsFile
	}
	if overlay.TokenFile != "" {
		c.TokenFile = overlay.TokenFile
	}
	if overlay.User != "" {
		c.User = overlay.User
	}
}

func (c *Config) loadDefaults() {
	if c.CredentialsFile == "" {
		c.CredentialsFile = "credentials.json"
	}
	if c.TokenFile == "" {
		c.TokenFile = "token.json"
	}
	if c.User == "" {
		c.User = "me"
	}
}

func (c *Config) loadEnv(env *Env) {
	envx.String(env.CredentialsFile, &c.CredentialsFile)
	envx.String(env.TokenFile, &c.TokenFile)
	envx.String(env.User, &c.User)
}
