package orders

import (
	"context"

	"github.com/JaimeStill/intake/internal/workflow"
	"github.com/JaimeStill/intake/pkg/pagination"
)

// System defines the public contract for order operations. It satisfies
// workflow.OrderStore and workflow.Verifier.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Order], error)
	Find(ctx context.Context, id string) (*Order, error)

	Store(ctx context.Context, runID string, fields map[string]any) (workflow.StoredOrder, error)
	Lookup(ctx context.Context, runID string) (workflow.StoredOrder, bool, error)
	Verify(ctx context.Context, orderID, path string) (workflow.Verification, error)
}
