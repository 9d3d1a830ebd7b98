package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// OutboxEvent is an order notification waiting for the publisher. ID doubles
// as the envelope event id, so consumers dedupe on the row key.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	// PublishedAt stays nil until a consumer accepted the event.
	PublishedAt  *time.Time `gorm:"column:published_at"`
	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// AttemptsLeft counts the deliveries still allowed, this one included.
func (e OutboxEvent) AttemptsLeft(maxAttempts int) int {
	if left := maxAttempts - e.AttemptCount; left > 0 {
		return left
	}
	return 0
}
