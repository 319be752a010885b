package runs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/intake/pkg/pagination"
)

// System defines the public contract for run operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Execute runs the intake workflow for a raw thread payload and records
	// the outcome. Step failures are part of the record, not errors.
	Execute(ctx context.Context, raw []byte) (*Record, error)

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Record], error)
	Find(ctx context.Context, id uuid.UUID) (*Record, error)
}
