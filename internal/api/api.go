// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/intake/internal/config"
	"github.com/JaimeStill/intake/internal/infrastructure"
	"github.com/JaimeStill/intake/pkg/middleware"
	"github.com/JaimeStill/intake/pkg/module"
	"github.com/JaimeStill/intake/pkg/openapi"
)

// NewModule creates the API module with all domain handlers and middleware.
// When authentication is enabled the OIDC provider is discovered here, so ctx
// bounds that network call.
func NewModule(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime, cfg.Agent)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	spec, err := openapi.ServeSpec(newSpec(cfg))
	if err != nil {
		return nil, fmt.Errorf("openapi spec: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", spec)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Logger(runtime.Logger))

	if cfg.API.Auth.Enabled {
		verifier, err := middleware.NewOIDCVerifier(ctx, &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("oidc verifier: %w", err)
		}
		m.Use(middleware.Auth(verifier, cfg.API.Auth.Public, runtime.Logger))
	}

	return m, nil
}
