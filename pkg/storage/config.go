package storage

import (
	"fmt"

	"github.com/JaimeStill/intake/pkg/envx"
)

// Supported storage providers.
const (
	ProviderAzure = "azure"
	ProviderMinio = "minio"
)

// Config selects a blob provider and holds its connection parameters.
// The Azure provider authenticates with ConnectionString when present and
// falls back to the default Azure credential chain against ServiceURL.
type Config struct {
	Provider         string      `toml:"provider"`
	ContainerName    string      `toml:"container_name"`
	ConnectionString string      `toml:"connection_string"`
	ServiceURL       string      `toml:"service_url"`
	Minio            MinioConfig `toml:"minio"`
}

// MinioConfig holds S3-compatible endpoint credentials.
type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	ContainerName    string
	ConnectionString string
	ServiceURL       string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioUseSSL      string
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
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.ServiceURL != "" {
		c.ServiceURL = overlay.ServiceURL
	}
	if overlay.Minio.Endpoint != "" {
		c.Minio.Endpoint = overlay.Minio.Endpoint
	}
	if overlay.Minio.AccessKey != "" {
		c.Minio.AccessKey = overlay.Minio.AccessKey
	}
	if overlay.Minio.SecretKey != "" {
		c.Minio.SecretKey = overlay.Minio.SecretKey
	}
	if overlay.Minio.UseSSL {
		c.Minio.UseSSL = true
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAzure
	}
	if c.ContainerName == "" {
		c.ContainerName = "orders"
	}
}

func (c *Config) loadEnv(env *Env) {
	envx.String(env.Provider, &c.Provider)
	envx.String(env.ContainerName, &c.ContainerName)
	envx.String(env.ConnectionString, &c.ConnectionString)
	envx.String(env.ServiceURL, &c.ServiceURL)
	envx.String(env.MinioEndpoint, &c.Minio.Endpoint)
	envx.String(env.MinioAccessKey, &c.Minio.AccessKey)
	envx.String(env.MinioSecretKey, &c.Minio.SecretKey)
	envx.Bool(env.MinioUseSSL, &c.Minio.UseSSL)
}

func (c *Config) validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("container_name required")
	}

	switch c.Provider {
	case ProviderAzure:
		if c.ConnectionString == "" && c.ServiceURL == "" {
			return fmt.Errorf("connection_string or service_url required for azure provider")
		}
	case ProviderMinio:
		if c.Minio.Endpoint == "" {
			return fmt.Errorf("minio.endpoint required for minio provider")
		}
	default:
		return fmt.Errorf("unknown storage provider: %q", c.Provider)
	}
	return nil
}
