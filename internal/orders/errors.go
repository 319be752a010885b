package orders

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/intake/internal/workflow"
	"github.com/JaimeStill/intake/pkg/repository"
)

// Domain errors for order operations.
var (
	ErrNotFound  = errors.New("order not found")
	ErrDuplicate = errors.New("order already stored for run")
	ErrIDTaken   = errors.New("order id already in use")
)

const (
	pkeyConstraint  = "orders_pkey"
	runIDConstraint = "orders_run_id_key"
)

// mapInsertError separates an order id collision from a second order for the
// same run. Other errors go through repository.MapError.
func mapInsertError(err error) error {
	if constraint, ok := repository.UniqueViolation(err); ok {
		switch constraint {
		case pkeyConstraint:
			return ErrIDTaken
		case runIDConstraint:
			return ErrDuplicate
		}
	}
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

// MapHTTPStatus maps order domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
