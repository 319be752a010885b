package workflow

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/JaimeStill/intake/internal/email"
	"github.com/JaimeStill/intake/internal/extract"
)

// State is a workflow controller state.
type State string

// Controller states. Summarized, Rejected, and Failed are terminal.
const (
	StateStart          State = "START"
	StateGated          State = "GATED"
	StateComposed       State = "COMPOSED"
	StateClassified     State = "CLASSIFIED"
	StateStored         State = "STORED"
	StateSkippedStorage State = "SKIPPED_STORAGE"
	StateVerified       State = "VERIFIED"
	StateUnverified     State = "UNVERIFIED"
	StateSummarized     State = "SUMMARIZED"
	StateRejected       State = "REJECTED"
	StateFailed         State = "FAILED"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateSummarized || s == StateRejected || s == StateFailed
}

// Workflow steps named in failure reports.
const (
	StepGate           = "gate"
	StepExtraction     = "extraction"
	StepClassification = "classification"
	StepStorage        = "storage"
	StepVerification   = "verification"
	StepSummary        = "summary"
)

// Classification labels the controller branches on.
const (
	LabelSalesOrder = "sales_order"
	LabelOther      = "other"
)

// Classification is the result of the classification capability. Fields
// carries whatever structured data the classifier extracted for storage.
type Classification struct {
	Label      string         `json:"label"`
	Fields     map[string]any `json:"fields,omitempty"`
	Confidence float64        `json:"confidence"`
	Rationale  string         `json:"rationale,omitempty"`
}

// StoredOrder is the reference returned by the storage capability. Both
// fields are opaque to the controller.
type StoredOrder struct {
	OrderID string `json:"order_id"`
	Path    string `json:"path"`
}

// Verification is the outcome of checking a stored order against its source.
type Verification struct {
	Matches bool   `json:"matches"`
	Details string `json:"details,omitempty"`
}

// Fragment sources.
const (
	SourceBody       = "body"
	SourceAttachment = "attachment"
)

// Fragment is one provenance-tagged piece of a classification payload.
type Fragment struct {
	Source string `json:"source"`
	Name   string `json:"name,omitempty"`
	Text   string `json:"text"`
}

// Payload is the composed classification input: body first, then each
// readable attachment.
type Payload struct {
	Fragments         []Fragment `json:"fragments"`
	Text              string     `json:"text"`
	HasAttachmentText bool       `json:"has_attachment_text"`
}

// Run is the per-run context threaded through every node. It is owned by a
// single Execute call.
type Run struct {
	ID             string           `json:"id"`
	State          State            `json:"state"`
	History        []State          `json:"history"`
	Thread         *email.Thread    `json:"-"`
	Extracted      *extract.Content `json:"extracted,omitempty"`
	Payload        *Payload         `json:"-"`
	Classification *Classification  `json:"classification,omitempty"`
	Stored         *StoredOrder     `json:"stored,omitempty"`
	Verification   *Verification    `json:"verification,omitempty"`
	Failure        *StepError       `json:"-"`
	Rejection      error            `json:"-"`
	Degraded       []error          `json:"-"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    time.Time        `json:"completed_at"`
}

func newRun(id string) *Run {
	return &Run{
		ID:        id,
		State:     StateStart,
		History:   []State{StateStart},
		StartedAt: time.Now().UTC(),
	}
}

func (r *Run) transition(to State) {
	r.State = to
	r.History = append(r.History, to)
}

func (r *Run) fail(step string, err error) {
	r.Failure = &StepError{Step: step, Err: err}
	r.transition(StateFailed)
}

func (r *Run) reject(err error) {
	if !errors.Is(err, ErrNotEmailThread) {
		err = fmt.Errorf("%w: %w", ErrNotEmailThread, err)
	}
	r.Rejection = err
	r.transition(StateRejected)
}

// Visited reports whether the run passed through s.
func (r *Run) Visited(s State) bool {
	return slices.Contains(r.History, s)
}
