package events

import (
	"time"

	"github.com/google/uuid"
)

// RunCompletedType names the event emitted after every intake run.
const RunCompletedType = "intake.run.completed.v1"

// Meta identifies and correlates a published event.
type Meta struct {
	ID            string    `json:"id"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	Producer      *string   `json:"producer,omitempty"`
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
}

// Envelope wraps event data with its metadata.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewEnvelope creates an envelope with a fresh id, correlated to correlationID
// when it is non-empty.
func NewEnvelope(eventType, correlationID string, data any) Envelope {
	meta := Meta{
		ID:   uuid.NewString(),
		Time: time.Now().UTC(),
		Type: eventType,
	}
	if correlationID != "" {
		meta.CorrelationID = &correlationID
	}
	return Envelope{Meta: meta, Data: data}
}
