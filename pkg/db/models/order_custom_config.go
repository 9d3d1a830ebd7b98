package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCustomConfig stores the baker-facing configuration of a custom (non-fungible) line.
type OrderCustomConfig struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LineItemID     uuid.UUID          `gorm:"column:line_item_id;type:uuid;not null;uniqueIndex"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	Flavor         string             `gorm:"column:flavor;not null"`
	Size           string             `gorm:"column:size;not null"`
	SizeMultiplier decimal.Decimal    `gorm:"column:size_multiplier;type:numeric(6,3);not null"`
	Frosting       string             `gorm:"column:frosting;not null"`
	Message        *string            `gorm:"column:message"`
	Extras         []OrderCustomExtra `gorm:"column:extras;type:jsonb;serializer:json"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// OrderCustomExtra is one priced add-on of a custom line.
type OrderCustomExtra struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
