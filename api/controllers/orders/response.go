package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

type CustomExtraResponse struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type CustomConfigResponse struct {
	Flavor         string                `json:"flavor"`
	Size           string                `json:"size"`
	SizeMultiplier decimal.Decimal       `json:"size_multiplier"`
	Frosting       string                `json:"frosting"`
	Message        *string               `json:"message,omitempty"`
	Extras         []CustomExtraResponse `json:"extras,omitempty"`
}

type LineItemResponse struct {
	ProductID    uuid.UUID             `json:"product_id"`
	Name         string                `json:"name"`
	Quantity     int                   `json:"quantity"`
	UnitPrice    decimal.Decimal       `json:"unit_price"`
	Subtotal     decimal.Decimal       `json:"subtotal"`
	CustomConfig *CustomConfigResponse `json:"custom_config,omitempty"`
}

// OrderResponse is the full order view returned to the buyer at checkout and to staff.
type OrderResponse struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"order_number"`
	UserID             *uuid.UUID          `json:"user_id,omitempty"`
	CustomerName       string              `json:"customer_name"`
	CustomerEmail      *string             `json:"customer_email,omitempty"`
	CustomerPhone      *string             `json:"customer_phone,omitempty"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	DiscountAmount     decimal.Decimal     `json:"discount_amount"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	PromoCode          *string             `json:"promo_code,omitempty"`
	PickupAt           *time.Time          `json:"pickup_at,omitempty"`
	PickupNotes        *string             `json:"pickup_notes,omitempty"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	Items              []LineItemResponse  `json:"items"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// TrackResponse omits contact details; the caller already proved them.
type TrackResponse struct {
	OrderNumber   string              `json:"order_number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PickupAt      *time.Time          `json:"pickup_at,omitempty"`
	Items         []LineItemResponse  `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func newOrderResponse(order *models.Order) OrderResponse {
	return OrderResponse{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		UserID:             order.UserID,
		CustomerName:       order.CustomerName,
		CustomerEmail:      order.CustomerEmail,
		CustomerPhone:      order.CustomerPhone,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		PaymentMethod:      order.PaymentMethod,
		Subtotal:           order.Subtotal,
		DiscountAmount:     order.DiscountAmount,
		TotalAmount:        order.TotalAmount,
		PromoCode:          order.PromoCode,
		PickupAt:           order.PickupAt,
		PickupNotes:        order.PickupNotes,
		CancellationReason: order.CancellationReason,
		ConfirmedAt:        order.ConfirmedAt,
		CancelledAt:        order.CancelledAt,
		CompletedAt:        order.CompletedAt,
		Items:              newLineItems(order.Items),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}

func newTrackResponse(order *models.Order) TrackResponse {
	return TrackResponse{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		PickupAt:      order.PickupAt,
		Items:         newLineItems(order.Items),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func newLineItems(items []models.OrderLineItem) []LineItemResponse {
	out := make([]LineItemResponse, 0, len(items))
	for _, item := range items {
		line := LineItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}
		if cfg := item.CustomConfig; cfg != nil {
			extras := make([]CustomExtraResponse, 0, len(cfg.Extras))
			for _, extra := range cfg.Extras {
				extras = append(extras, CustomExtraResponse{Name: extra.Name, Price: extra.Price})
			}
			line.CustomConfig = &CustomConfigResponse{
				Flavor:         cfg.Flavor,
				Size:           cfg.Size,
				SizeMultiplier: cfg.SizeMultiplier,
				Frosting:       cfg.Frosting,
				Message:        cfg.Message,
				Extras:         extras,
			}
		}
		out = append(out, line)
	}
	return out
}
