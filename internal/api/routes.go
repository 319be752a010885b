package api

import (
	"net/http"

	"github.com/JaimeStill/intake/internal/classifier"
	"github.com/JaimeStill/intake/internal/config"
	"github.com/JaimeStill/intake/pkg/module"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	module.Register(
		mux,
		domain.Runs.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Orders.Handler().Routes(),
		classifier.NewHandler(domain.Classifier.Categories(), runtime.Logger).Routes(),
	)
}
