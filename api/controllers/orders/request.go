package orders

import (
	"time"

	"github.com/google/uuid"

	cartcontroller "github.com/angelmondragon/bakery-backend/api/controllers/cart"
	internalorders "github.com/angelmondragon/bakery-backend/internal/orders"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

type guestContactRequest struct {
	Name  string  `json:"name" validate:"required,max=120"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32,phone"`
}

type directItemRequest struct {
	ProductID    uuid.UUID                           `json:"product_id" validate:"required"`
	Quantity     int                                 `json:"quantity" validate:"gt=0,max=100"`
	CustomConfig *cartcontroller.CustomConfigRequest `json:"custom_config,omitempty" validate:"omitempty"`
}

// CheckoutRequest places an order from the caller's cart, or from Items when
// they are supplied.
type CheckoutRequest struct {
	PaymentMethod enums.PaymentMethod  `json:"payment_method" validate:"required,enum"`
	Guest         *guestContactRequest `json:"guest,omitempty" validate:"omitempty"`
	Items         []directItemRequest  `json:"items,omitempty" validate:"omitempty,max=50,dive"`
	PromoCode     *string              `json:"promo_code,omitempty" validate:"omitempty,max=40"`
	PickupAt      *time.Time           `json:"pickup_at,omitempty"`
	PickupNotes   *string              `json:"pickup_notes,omitempty" validate:"omitempty,max=500"`
}

type StatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required,enum"`
}

type PaymentRequest struct {
	PaymentStatus enums.PaymentStatus `json:"payment_status" validate:"required,enum"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (r CheckoutRequest) toInput(userID *uuid.UUID, sessionID string) internalorders.CreateOrderInput {
	input := internalorders.CreateOrderInput{
		UserID:         userID,
		GuestSessionID: sessionID,
		PaymentMethod:  r.PaymentMethod,
		PromoCode:      r.PromoCode,
		PickupAt:       r.PickupAt,
		PickupNotes:    r.PickupNotes,
	}
	if r.Guest != nil {
		input.Guest = &internalorders.GuestContact{
			Name:  r.Guest.Name,
			Email: r.Guest.Email,
			Phone: r.Guest.Phone,
		}
	}
	for _, item := range r.Items {
		input.Items = append(input.Items, internalorders.DirectItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Custom:    item.CustomConfig.ToConfig(),
		})
	}
	return input
}
