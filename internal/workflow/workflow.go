// Package workflow implements the email intake controller: a state graph
// that gates a raw payload, composes attachment and body text, classifies
// it, and for sales orders stores and verifies the order. Every external
// operation is reached through a capability interface on Runtime.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// State bag keys.
const (
	KeyRun   = "run"
	KeyInput = "input"
)

var errNoRun = errors.New("run missing from state")

// Execute runs the intake workflow for one raw payload and returns the run
// in a terminal state. The error is non-nil only when the graph itself
// cannot be built or executed; step failures are recorded on the run.
func Execute(ctx context.Context, rt *Runtime, runID string, raw []byte) (*Run, error) {
	run := newRun(runID)

	graph, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initial := state.New(nil)
	initial = initial.Set(KeyRun, run)
	initial = initial.Set(KeyInput, raw)

	if _, err := graph.Execute(ctx, initial); err != nil {
		if !run.State.Terminal() {
			run.fail(nextStep(run.State), err)
			rt.Logger.ErrorContext(ctx, "run interrupted", "run_id", run.ID, "error", err)
		}
	}

	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}
	return run, nil
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("intake")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := []struct {
		name string
		node state.StateNode
	}{
		{"gate", GateNode(rt)},
		{"compose", ComposeNode(rt)},
		{"classify", ClassifyNode(rt)},
		{"store", StoreNode(rt)},
		{"verify", VerifyNode(rt)},
		{"summarize", SummarizeNode(rt)},
	}
	for _, n := range nodes {
		if err := graph.AddNode(n.name, n.node); err != nil {
			return nil, err
		}
	}

	edges := []struct {
		from, to string
		when     func(state.State) bool
	}{
		{"gate", "compose", inState(StateGated)},
		{"gate", "summarize", state.Not(inState(StateGated))},
		{"compose", "classify", nil},
		{"classify", "store", inState(StateClassified)},
		{"classify", "summarize", state.Not(inState(StateClassified))},
		{"store", "verify", inState(StateStored)},
		{"store", "summarize", state.Not(inState(StateStored))},
		{"verify", "summarize", nil},
	}
	for _, e := range edges {
		if err := graph.AddEdge(e.from, e.to, e.when); err != nil {
			return nil, err
		}
	}

	if err := graph.SetEntryPoint("gate"); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint("summarize"); err != nil {
		return nil, err
	}

	return graph, nil
}

// inState matches when the run's current state is s. A classified run whose
// label is not a sales order has already moved to SkippedStorage.
func inState(s State) func(state.State) bool {
	return func(st state.State) bool {
		run, err := runFrom(st)
		return err == nil && run.State == s
	}
}

func runFrom(s state.State) (*Run, error) {
	val, ok := s.Get(KeyRun)
	if !ok {
		return nil, errNoRun
	}
	run, ok := val.(*Run)
	if !ok {
		return nil, fmt.Errorf("%s is not *Run", KeyRun)
	}
	return run, nil
}

func nextStep(s State) string {
	switch s {
	case StateStart:
		return StepGate
	case StateGated:
		return StepExtraction
	case StateComposed:
		return StepClassification
	case StateClassified:
		return StepStorage
	case StateStored:
		return StepVerification
	default:
		return StepSummary
	}
}
