// Package runs executes intake runs and keeps their history: every run's
// summary and facts are recorded and announced as a run-completed event.
package runs

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/intake/internal/workflow"
)

// Domain errors for run operations.
var (
	ErrNotFound  = errors.New("run not found")
	ErrDuplicate = errors.New("run already recorded")
	ErrTooLarge  = errors.New("payload exceeds maximum size")
)

// MapHTTPStatus maps run domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Record is a completed run as kept in history.
type Record struct {
	ID          uuid.UUID        `json:"id"`
	State       workflow.State   `json:"state"`
	Label       string           `json:"label,omitempty"`
	OrderID     string           `json:"order_id,omitempty"`
	Summary     workflow.Summary `json:"summary"`
	Facts       json.RawMessage  `json:"facts"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Completed is the data of a run-completed event.
type Completed struct {
	RunID        string         `json:"run_id"`
	State        workflow.State `json:"state"`
	Label        string         `json:"label,omitempty"`
	OrderID      string         `json:"order_id,omitempty"`
	Path         string         `json:"path,omitempty"`
	Verification string         `json:"verification"`
	FailedStep   string         `json:"failed_step,omitempty"`
}

// NewRecord builds the history record of a finished run.
func NewRecord(id uuid.UUID, run *workflow.Run) (Record, error) {
	facts, err := json.Marshal(run)
	if err != nil {
		return Record{}, err
	}

	s := workflow.Summarize(run)
	return Record{
		ID:          id,
		State:       run.State,
		Label:       s.Label,
		OrderID:     s.OrderID,
		Summary:     s,
		Facts:       facts,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}, nil
}

// Event returns the run-completed event data for r.
func (r Record) Event() Completed {
	return Completed{
		RunID:        r.ID.String(),
		State:        r.State,
		Label:        r.Label,
		OrderID:      r.OrderID,
		Path:         r.Summary.Path,
		Verification: r.Summary.Verification,
		FailedStep:   r.Summary.FailedStep,
	}
}
