package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// Notification is a pending customer message. Rendering and delivery happen in
// an external sender that polls rows with a nil SentAt.
type Notification struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID        uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	Type           enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	RecipientName  string                 `gorm:"column:recipient_name;not null"`
	RecipientEmail *string                `gorm:"column:recipient_email"`
	RecipientPhone *string                `gorm:"column:recipient_phone"`
	Title          string                 `gorm:"column:title;not null"`
	Message        string                 `gorm:"column:message;not null"`
	Context        json.RawMessage        `gorm:"column:context;type:jsonb"`
	SentAt         *time.Time             `gorm:"column:sent_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
