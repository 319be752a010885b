package workflow

import (
	"errors"

	"github.com/JaimeStill/intake/internal/email"
)

// Sentinel errors for workflow steps.
var (
	ErrNotEmailThread       = email.ErrNotEmailThread
	ErrExtractionDegraded   = errors.New("attachment content could not be used")
	ErrClassificationFailed = errors.New("classification failed")
	ErrValidationFailed     = errors.New("order validation failed")
	ErrStorageFailed        = errors.New("order storage failed")
	ErrVerificationFailed   = errors.New("order verification failed")
)

// ErrValidation is wrapped by OrderStore implementations when the supplied
// fields cannot form an order. Nothing is written in that case and the
// controller does not retry.
var ErrValidation = errors.New("invalid order fields")

// StepError records the workflow step at which a run failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}
