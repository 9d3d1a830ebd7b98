package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem is a point-in-time snapshot of a purchased line. It never
// references the live catalog price.
type OrderLineItem struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	ProductID    uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	Position     int                `gorm:"column:position;not null"`
	Name         string             `gorm:"column:name;not null"`
	Quantity     int                `gorm:"column:quantity;not null"`
	UnitPrice    decimal.Decimal    `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Subtotal     decimal.Decimal    `gorm:"column:subtotal;type:numeric(10,2);not null"`
	CustomConfig *OrderCustomConfig `gorm:"foreignKey:LineItemID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
