package api

import (
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/intake/internal/classifier"
	"github.com/JaimeStill/intake/internal/extract"
	"github.com/JaimeStill/intake/internal/orders"
	"github.com/JaimeStill/intake/internal/runs"
	"github.com/JaimeStill/intake/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Classifier *classifier.Classifier
	Orders     orders.System
	Runs       runs.System
}

// NewDomain creates all domain systems from the API runtime. agent configures
// the classification model and, when enabled, the vision fallback.
func NewDomain(runtime *Runtime, agent gaconfig.AgentConfig) *Domain {
	wf := runtime.Workflow

	var fallback extract.TextExtractor
	if wf.VisionFallback {
		fallback = extract.NewVision(agent, wf.MaxVisionPages, runtime.Logger)
	}

	extractor := extract.New(
		extract.PDFText{},
		fallback,
		extract.Options{
			Timeout:     wf.ExtractTimeoutDuration(),
			Concurrency: wf.ExtractConcurrency,
		},
		runtime.Logger,
	)

	cls := classifier.New(
		classifier.AgentChat(agent),
		wf.Categories,
		runtime.Logger,
	)

	ordersSystem := orders.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	wfRuntime := &workflow.Runtime{
		Extractor:  extractor,
		Classifier: cls,
		Store:      ordersSystem,
		Verifier:   ordersSystem,
		Options: workflow.Options{
			Classify:        wf.RetryPolicy(),
			ClassifyTimeout: wf.ClassifyTimeoutDuration(),
			StoreAttempts:   wf.StoreAttempts,
			StoreBackoff:    wf.StoreBackoffDuration(),
			StoreTimeout:    wf.StoreTimeoutDuration(),
			VerifyTimeout:   wf.VerifyTimeoutDuration(),
			Labels:          cls.Labels(),
		},
		Logger: runtime.Logger,
	}

	runsSystem := runs.New(
		runtime.Database.Connection(),
		wfRuntime,
		runtime.Events,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Classifier: cls,
		Orders:     ordersSystem,
		Runs:       runsSystem,
	}
}
