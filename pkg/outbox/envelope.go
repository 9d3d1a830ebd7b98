package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who caused the event. Guest actors are recorded by their
// hashed session key, never the raw token.
type ActorRef struct {
	UserID       *uuid.UUID `json:"userId,omitempty"`
	GuestSession string     `json:"guestSession,omitempty"`
	Role         string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload and checks the fields consumers rely on.
func DecodeEnvelope(raw json.RawMessage) (PayloadEnvelope, uuid.UUID, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, uuid.Nil, NewNonRetryableError(err)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return PayloadEnvelope{}, uuid.Nil, NewNonRetryableError(err)
	}
	return envelope, eventID, nil
}
