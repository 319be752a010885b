package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/intake/internal/email"
	"github.com/JaimeStill/intake/internal/extract"
	"github.com/JaimeStill/intake/pkg/retry"
)

// Extractor produces attachment text for a thread; nil means no PDF.
type Extractor interface {
	Extract(ctx context.Context, thread *email.Thread) *extract.Content
}

// Classifier is the external classification capability.
type Classifier interface {
	Classify(ctx context.Context, text string, hasAttachmentText bool) (Classification, error)
}

// OrderStore is the external storage capability. runID is the idempotency
// key: Lookup reports the order a previous Store call for the same run
// created, if any.
type OrderStore interface {
	Store(ctx context.Context, runID string, fields map[string]any) (StoredOrder, error)
	Lookup(ctx context.Context, runID string) (StoredOrder, bool, error)
}

// Verifier is the external verification capability.
type Verifier interface {
	Verify(ctx context.Context, orderID, path string) (Verification, error)
}

// Options bounds each invoker call.
type Options struct {
	Classify        retry.Policy
	ClassifyTimeout time.Duration
	StoreAttempts   int
	StoreBackoff    time.Duration
	StoreTimeout    time.Duration
	VerifyTimeout   time.Duration
	// Labels is the known label set; anything else is treated as other.
	Labels []string
}

// Runtime bundles the capabilities and policies workflow nodes require.
// It holds no per-run state and is safe for concurrent runs when the
// capabilities are.
type Runtime struct {
	Extractor  Extractor
	Classifier Classifier
	Store      OrderStore
	Verifier   Verifier
	Options    Options
	Logger     *slog.Logger
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
