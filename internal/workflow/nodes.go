package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/intake/internal/email"
)

// Nodes never return errors for step failures: they record the failure on
// the Run and route to summarize. Returned errors are reserved for a missing
// or mistyped run in the state bag.

// GateNode parses the raw payload and rejects anything that is not an email
// thread. No other capability is touched on rejection.
func GateNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		run, err := runFrom(s)
		if err != nil {
			return s, fmt.Errorf("gate: %w", err)
		}

		raw, _ := s.Get(KeyInput)
		input, _ := raw.([]byte)

		thread, err := email.Parse(input)
		if err != nil {
			run.reject(err)
			rt.Logger.InfoContext(ctx, "input rejected", "run_id", run.ID, "state", run.State, "reason", run.Rejection)
			return s, nil
		}

		run.Thread = thread
		run.transition(StateGated)
		rt.Logger.InfoContext(ctx, "input gated",
			"run_id", run.ID,
			"state", run.State,
			"messages", len(thread.Messages),
			"attachments", len(thread.Attachments),
		)
		return s, nil
	})
}

// ComposeNode extracts attachment text and composes the classification
// payload. Extraction problems are absorbed and noted on the run.
func ComposeNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		run, err := runFrom(s)
		if err != nil {
			return s, fmt.Errorf("compose: %w", err)
		}

		if rt.Extractor != nil {
			run.Extracted = rt.Extractor.Extract(ctx, run.Thread)
		}

		if run.Extracted != nil {
			for _, r := range run.Extracted.Results {
				if r.OK {
					continue
				}
				err := fmt.Errorf("%w: %s: %s", ErrExtractionDegraded, r.Filename, r.Reason)
				run.Degraded = append(run.Degraded, err)
				rt.Logger.WarnContext(ctx, "attachment excluded", "run_id", run.ID, "error", err)
			}
		}

		payload := Compose(run.Thread, run.Extracted)
		run.Payload = &payload
		run.transition(StateComposed)

		rt.Logger.InfoContext(ctx, "payload composed",
			"run_id", run.ID,
			"state", run.State,
			"fragments", len(payload.Fragments),
			"degraded", run.Extracted.Degraded(),
		)
		return s, nil
	})
}

// ClassifyNode invokes the classification capability and decides the
// storage branch.
func ClassifyNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		run, err := runFrom(s)
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}

		if err := ctx.Err(); err != nil {
			run.fail(StepClassification, err)
			return s, nil
		}

		c, err := classify(ctx, rt, run)
		if err != nil {
			run.fail(StepClassification, err)
			rt.Logger.ErrorContext(ctx, "classification failed", "run_id", run.ID, "error", err)
			return s, nil
		}

		run.Classification = &c
		run.transition(StateClassified)
		rt.Logger.InfoContext(ctx, "payload classified",
			"run_id", run.ID,
			"state", run.State,
			"label", c.Label,
			"confidence", c.Confidence,
		)

		if c.Label != LabelSalesOrder {
			run.transition(StateSkippedStorage)
		}
		return s, nil
	})
}

// StoreNode persists the sales order.
func StoreNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		run, err := runFrom(s)
		if err != nil {
			return s, fmt.Errorf("store: %w", err)
		}

		if err := ctx.Err(); err != nil {
			run.fail(StepStorage, err)
			return s, nil
		}

		order, err := store(ctx, rt, run)
		if err != nil {
			run.fail(StepStorage, err)
			rt.Logger.ErrorContext(ctx, "order storage failed", "run_id", run.ID, "error", err)
			return s, nil
		}

		run.Stored = &order
		run.transition(StateStored)
		rt.Logger.InfoContext(ctx, "order stored",
			"run_id", run.ID,
			"state", run.State,
			"order_id", order.OrderID,
			"path", order.Path,
		)
		return s, nil
	})
}

// VerifyNode checks the stored order exactly once. A mismatch is an outcome,
// not a failure.
func VerifyNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		run, err := runFrom(s)
		if err != nil {
			return s, fmt.Errorf("verify: %w", err)
		}

		if err := ctx.Err(); err != nil {
			run.fail(StepVerification, err)
			return s, nil
		}

		v, err := verify(ctx, rt, *run.Stored)
		if err != nil {
			run.fail(StepVerification, err)
			rt.Logger.ErrorContext(ctx, "order verification failed", "run_id", run.ID, "error", err)
			return s, nil
		}

		run.Verification = &v
		if v.Matches {
			run.transition(StateVerified)
		} else {
			run.transition(StateUnverified)
		}

		rt.Logger.InfoContext(ctx, "order verified",
			"run_id", run.ID,
			"state", run.State,
			"matches", v.Matches,
			"details", v.Details,
		)
		return s, nil
	})
}

// SummarizeNode closes the run. Rejected and failed runs keep their terminal
// state.
func SummarizeNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		run, err := runFrom(s)
		if err != nil {
			return s, fmt.Errorf("summarize: %w", err)
		}

		if !run.State.Terminal() {
			run.transition(StateSummarized)
		}
		run.CompletedAt = time.Now().UTC()

		rt.Logger.InfoContext(ctx, "run complete",
			"run_id", run.ID,
			"state", run.State,
			"duration", run.CompletedAt.Sub(run.StartedAt),
		)
		return s, nil
	})
}
