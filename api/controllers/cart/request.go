package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/bakery-backend/internal/cart"
)

// customExtraRequest names an add-on from the price list. Its price is never
// read from the client.
type customExtraRequest struct {
	Name string `json:"name" validate:"required,max=40"`
}

// CustomConfigRequest describes a made-to-order cake. Size and extras are
// priced server-side.
type CustomConfigRequest struct {
	Flavor   string               `json:"flavor" validate:"required,max=80"`
	Size     string               `json:"size" validate:"required,max=20"`
	Frosting string               `json:"frosting" validate:"required,max=80"`
	Message  *string              `json:"message,omitempty" validate:"omitempty,max=200"`
	Extras   []customExtraRequest `json:"extras,omitempty" validate:"omitempty,max=10,dive"`
}

type AddItemRequest struct {
	ProductID    uuid.UUID            `json:"product_id" validate:"required"`
	Quantity     int                  `json:"quantity" validate:"gt=0,max=100"`
	CustomConfig *CustomConfigRequest `json:"custom_config,omitempty" validate:"omitempty"`
}

// UpdateItemRequest addresses a line by index or, for fungible lines, by product.
type UpdateItemRequest struct {
	Index     *int       `json:"index,omitempty" validate:"omitempty,min=0"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"min=0,max=100"`
}

type GuestInfoRequest struct {
	Name  string  `json:"name" validate:"required,max=120"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32,phone"`
}

func (r AddItemRequest) toInput() cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		Custom:    r.CustomConfig.ToConfig(),
	}
}

// ToConfig maps the request onto the cart model; a nil request yields nil.
func (r *CustomConfigRequest) ToConfig() *cartsvc.CustomConfig {
	if r == nil {
		return nil
	}
	extras := make([]cartsvc.CustomExtra, 0, len(r.Extras))
	for _, extra := range r.Extras {
		extras = append(extras, cartsvc.CustomExtra{Name: extra.Name})
	}
	return &cartsvc.CustomConfig{
		Flavor:   r.Flavor,
		Size:     r.Size,
		Frosting: r.Frosting,
		Message:  r.Message,
		Extras:   extras,
	}
}

func (r GuestInfoRequest) toInfo() cartsvc.GuestInfo {
	return cartsvc.GuestInfo{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

func lineRef(index *int, productID *uuid.UUID) cartsvc.LineRef {
	return cartsvc.LineRef{Index: index, ProductID: productID}
}
