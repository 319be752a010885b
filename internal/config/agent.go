package config

import (
	"fmt"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/intake/pkg/envx"
)

const (
	EnvAgentProviderName = "INTAKE_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "INTAKE_AGENT_BASE_URL"
	EnvAgentToken        = "INTAKE_AGENT_TOKEN"
	EnvAgentDeployment   = "INTAKE_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "INTAKE_AGENT_API_VERSION"
	EnvAgentAuthType     = "INTAKE_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "INTAKE_AGENT_MODEL_NAME"
)

// FinalizeAgent finalizes the go-agents AgentConfig shared by the classifier
// and the vision fallback: go-agents defaults, INTAKE_AGENT_* overrides, then
// validation.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	loadAgentDefaults(c)
	loadAgentEnv(c)
	return validateAgent(c)
}

func loadAgentDefaults(c *gaconfig.AgentConfig) {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}
	envx.String(EnvAgentProviderName, &c.Provider.Name)
	envx.String(EnvAgentBaseURL, &c.Provider.BaseURL)
	envx.String(EnvAgentModelName, &c.Model.Name)

	setOption := func(envVar, key string) {
		var v string
		envx.String(envVar, &v)
		if v != "" {
			c.Provider.Options[key] = v
		}
	}

	setOption(EnvAgentToken, "token")
	setOption(EnvAgentDeployment, "deployment")
	setOption(EnvAgentAPIVersion, "api_version")
	setOption(EnvAgentAuthType, "auth_type")
}

func validateAgent(c *gaconfig.AgentConfig) error {
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.Provider == nil {
		return fmt.Errorf("provider required")
	}
	if c.Provider.Name == "" {
		return fmt.Errorf("provider name required")
	}
	if c.Model == nil {
		return fmt.Errorf("model required")
	}
	return nil
}
