package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// PromoCode is a discount code. Code lookups are case-insensitive.
type PromoCode struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string              `gorm:"column:code;not null;uniqueIndex"`
	DiscountType enums.DiscountType  `gorm:"column:discount_type;type:discount_type;not null"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	MinSubtotal  decimal.NullDecimal `gorm:"column:min_subtotal;type:numeric(10,2)"`
	ValidFrom    time.Time           `gorm:"column:valid_from;not null"`
	ValidTo      time.Time           `gorm:"column:valid_to;not null"`
	UsageLimit   *int                `gorm:"column:usage_limit"`
	UsedCount    int                 `gorm:"column:used_count;not null;default:0"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
