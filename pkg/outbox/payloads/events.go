package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// Recipient is who a notification addresses. At least one of Email or Phone is set.
type Recipient struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// OrderNotificationEvent asks the notification consumer to record a customer message
// about an order. The external sender renders it from Type and Context.
type OrderNotificationEvent struct {
	OrderID     uuid.UUID              `json:"order_id"`
	OrderNumber string                 `json:"order_number"`
	Type        enums.NotificationType `json:"type"`
	Status      enums.OrderStatus      `json:"status"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
	Recipient   Recipient              `json:"recipient"`
	Context     map[string]any         `json:"context,omitempty"`
}
