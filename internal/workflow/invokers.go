package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/JaimeStill/intake/pkg/retry"
)

var errMissingLabel = errors.New("classifier returned no label")

// classify calls the classifier under the retry policy. Unknown labels are
// mapped to other; an exhausted budget is a ClassificationFailure, never a
// default label.
func classify(ctx context.Context, rt *Runtime, run *Run) (Classification, error) {
	var result Classification

	err := retry.Do(ctx, rt.Options.Classify, nil, func(ctx context.Context, attempt int) error {
		callCtx, cancel := withTimeout(ctx, rt.Options.ClassifyTimeout)
		defer cancel()

		c, err := rt.Classifier.Classify(callCtx, run.Payload.Text, run.Payload.HasAttachmentText)
		if err == nil && c.Label == "" {
			err = errMissingLabel
		}
		if err != nil {
			rt.Logger.WarnContext(ctx, "classification attempt failed",
				"run_id", run.ID, "attempt", attempt, "error", err)
			return err
		}

		result = c
		return nil
	})
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}

	if len(rt.Options.Labels) > 0 && !slices.Contains(rt.Options.Labels, result.Label) {
		rt.Logger.InfoContext(ctx, "unknown label treated as other", "run_id", run.ID, "label", result.Label)
		result.Label = LabelOther
	}
	return result, nil
}

// store persists the order at most once per run. A failed attempt is only
// retried after Lookup confirms the store holds no order for the run; a found
// order is adopted instead.
func store(ctx context.Context, rt *Runtime, run *Run) (StoredOrder, error) {
	attempts := max(rt.Options.StoreAttempts, 1)

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return StoredOrder{}, fmt.Errorf("%w: %w", ErrStorageFailed, errors.Join(last, err))
			}

			existing, found, err := lookup(ctx, rt, run.ID)
			if err != nil {
				return StoredOrder{}, fmt.Errorf("%w: %w; lookup before retry: %w", ErrStorageFailed, last, err)
			}
			if found {
				rt.Logger.InfoContext(ctx, "order already stored by failed attempt",
					"run_id", run.ID, "order_id", existing.OrderID)
				return existing, nil
			}

			delay := retry.Jittered(rt.Options.StoreBackoff, rt.Options.StoreBackoff*2, 0)
			if err := retry.Sleep(ctx, delay); err != nil {
				return StoredOrder{}, fmt.Errorf("%w: %w", ErrStorageFailed, errors.Join(last, err))
			}
		}

		order, err := storeOnce(ctx, rt, run)
		if err == nil {
			if order.OrderID == "" || order.Path == "" {
				return StoredOrder{}, fmt.Errorf("%w: store returned empty identifiers", ErrStorageFailed)
			}
			return order, nil
		}

		if errors.Is(err, ErrValidation) {
			return StoredOrder{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
		if retry.IsCancellation(err) {
			return StoredOrder{}, fmt.Errorf("%w: %w", ErrStorageFailed, err)
		}

		rt.Logger.WarnContext(ctx, "store attempt failed", "run_id", run.ID, "attempt", attempt, "error", err)
		last = err
	}

	return StoredOrder{}, fmt.Errorf("%w: %w", ErrStorageFailed, last)
}

func storeOnce(ctx context.Context, rt *Runtime, run *Run) (StoredOrder, error) {
	callCtx, cancel := withTimeout(ctx, rt.Options.StoreTimeout)
	defer cancel()
	return rt.Store.Store(callCtx, run.ID, run.Classification.Fields)
}

func lookup(ctx context.Context, rt *Runtime, runID string) (StoredOrder, bool, error) {
	callCtx, cancel := withTimeout(ctx, rt.Options.StoreTimeout)
	defer cancel()
	return rt.Store.Lookup(callCtx, runID)
}

// verify performs exactly one verification call with the stored reference.
func verify(ctx context.Context, rt *Runtime, order StoredOrder) (Verification, error) {
	callCtx, cancel := withTimeout(ctx, rt.Options.VerifyTimeout)
	defer cancel()

	v, err := rt.Verifier.Verify(callCtx, order.OrderID, order.Path)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	return v, nil
}
