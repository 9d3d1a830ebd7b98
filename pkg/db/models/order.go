package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// Order is the durable result of a checkout. Line items are immutable once written;
// status and payment status only change through the order state machine.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID        *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	GuestName     *string             `gorm:"column:guest_name"`
	GuestEmail    *string             `gorm:"column:guest_email"`
	GuestPhone    *string             `gorm:"column:guest_phone"`
	CustomerName  string              `gorm:"column:customer_name;not null"`
	CustomerEmail *string             `gorm:"column:customer_email"`
	CustomerPhone *string             `gorm:"column:customer_phone"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`

	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(10,2);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(10,2);not null"`
	PromoCode      *string         `gorm:"column:promo_code"`

	PickupAt           *time.Time `gorm:"column:pickup_at"`
	PickupNotes        *string    `gorm:"column:pickup_notes"`
	CancellationReason *string    `gorm:"column:cancellation_reason"`
	ConfirmedAt        *time.Time `gorm:"column:confirmed_at"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`

	Items []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the order was placed without an account.
func (o Order) IsGuest() bool {
	return o.UserID == nil
}
