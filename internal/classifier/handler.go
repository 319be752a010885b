package classifier

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/intake/pkg/handlers"
	"github.com/JaimeStill/intake/pkg/module"
)

// Handler exposes the effective category set.
type Handler struct {
	categories []Category
	logger     *slog.Logger
}

// NewHandler creates a Handler for the given categories.
func NewHandler(categories []Category, logger *slog.Logger) *Handler {
	return &Handler{
		categories: categories,
		logger:     logger.With("handler", "categories"),
	}
}

// Routes returns the route group for category endpoints.
func (h *Handler) Routes() module.Group {
	return module.Group{
		Prefix: "/categories",
		Routes: []module.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
		},
	}
}

// List returns every category with its description.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.categories)
}
