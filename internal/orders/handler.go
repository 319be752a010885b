package orders

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/intake/pkg/handlers"
	"github.com/JaimeStill/intake/pkg/module"
	"github.com/JaimeStill/intake/pkg/pagination"
)

// Handler provides HTTP endpoints for order operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "orders"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for order endpoints.
func (h *Handler) Routes() module.Group {
	return module.Group{
		Prefix: "/orders",
		Routes: []module.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "/{id}/verify", Handler: h.Verify},
		},
	}
}

// List returns a paginated list of orders. ?search matches customer name or
// email.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page, FiltersFromQuery(r.URL.Query()))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single order by id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	order, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, order)
}

// Verify re-checks a stored order against its record and document.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	order, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	v, err := h.sys.Verify(r.Context(), order.ID, order.Path)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadGateway, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}
