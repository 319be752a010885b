package workflow

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/intake/internal/email"
)

// Verification outcomes reported in a Summary.
const (
	VerificationPassed       = "passed"
	VerificationMismatch     = "mismatch"
	VerificationNotPerformed = "not_performed"
)

// Summary is the user-facing account of a run. Text is the rendered reply;
// the remaining fields carry the same facts for programmatic consumers.
type Summary struct {
	RunID               string   `json:"run_id"`
	State               State    `json:"state"`
	Label               string   `json:"label,omitempty"`
	Stored              bool     `json:"stored"`
	OrderID             string   `json:"order_id,omitempty"`
	Path                string   `json:"path,omitempty"`
	Verification        string   `json:"verification"`
	VerificationDetails string   `json:"verification_details,omitempty"`
	Notes               []string `json:"notes,omitempty"`
	FailedStep          string   `json:"failed_step,omitempty"`
	FailureReason       string   `json:"failure_reason,omitempty"`
	Text                string   `json:"text"`
}

// Summarize derives the summary of run. Identifiers are copied only from the
// stored order reference; nothing is invented.
func Summarize(run *Run) Summary {
	s := Summary{
		RunID:        run.ID,
		State:        run.State,
		Verification: VerificationNotPerformed,
	}

	if run.State == StateRejected {
		s.Text = email.RejectionMessage
		return s
	}

	if run.Classification != nil {
		s.Label = run.Classification.Label
	}
	if run.Stored != nil {
		s.Stored = true
		s.OrderID = run.Stored.OrderID
		s.Path = run.Stored.Path
	}
	if run.Verification != nil {
		if run.Verification.Matches {
			s.Verification = VerificationPassed
		} else {
			s.Verification = VerificationMismatch
			s.VerificationDetails = run.Verification.Details
		}
	}
	s.Notes = degradedNotes(run)
	if run.Failure != nil {
		s.FailedStep = run.Failure.Step
		s.FailureReason = run.Failure.Err.Error()
	}

	s.Text = render(s, run)
	return s
}

// Render returns the summary text of run.
func Render(run *Run) string {
	return Summarize(run).Text
}

func render(s Summary, run *Run) string {
	var lines []string

	if s.Label != "" {
		lines = append(lines, "Classification: "+s.Label)
	}

	switch {
	case s.Stored:
		lines = append(lines, "Storage path: "+s.Path, "Order ID: "+s.OrderID)
	case run.Visited(StateSkippedStorage):
		lines = append(lines, "Storage: skipped (label is not "+LabelSalesOrder+")")
	}

	switch s.Verification {
	case VerificationPassed:
		lines = append(lines, "Verification: passed")
	case VerificationMismatch:
		if s.VerificationDetails != "" {
			lines = append(lines, fmt.Sprintf("Verification: MISMATCH (%s)", s.VerificationDetails))
		} else {
			lines = append(lines, "Verification: MISMATCH")
		}
	default:
		if s.Label != "" && s.FailedStep != StepVerification {
			lines = append(lines, "Verification: not performed")
		}
	}

	lines = append(lines, s.Notes...)

	if s.FailedStep != "" {
		lines = append(lines, fmt.Sprintf("Run failed at %s: %s", s.FailedStep, s.FailureReason))
	}

	return strings.Join(lines, "\n")
}

func degradedNotes(run *Run) []string {
	degraded := run.Extracted.Degraded()
	if len(degraded) == 0 {
		return nil
	}

	bodyOnly := len(run.Extracted.Readable()) == 0

	notes := make([]string, 0, len(degraded))
	for _, name := range degraded {
		if bodyOnly && run.Payload != nil {
			notes = append(notes, fmt.Sprintf("Note: attachment %s could not be read; classified on email body only.", name))
		} else {
			notes = append(notes, fmt.Sprintf("Note: attachment %s could not be read; its content was not used.", name))
		}
	}
	return notes
}
