package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

// CustomExtra is an add-on such as fresh berries or a gold leaf topper. Price
// is the surcharge from the price list at the time the line was priced.
type CustomExtra struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CustomConfig specifies a made-to-order item. A line carrying one is never
// merged with another line, even an identical one. SizeMultiplier and extra
// prices are only ever set by Priced.
type CustomConfig struct {
	Flavor         string           `json:"flavor"`
	Size           string           `json:"size"`
	SizeMultiplier *decimal.Decimal `json:"size_multiplier,omitempty"`
	Frosting       string           `json:"frosting"`
	Message        *string          `json:"message,omitempty"`
	Extras         []CustomExtra    `json:"extras,omitempty"`
}

func (c CustomConfig) clone() *CustomConfig {
	out := c
	if c.SizeMultiplier != nil {
		m := *c.SizeMultiplier
		out.SizeMultiplier = &m
	}
	if c.Message != nil {
		msg := *c.Message
		out.Message = &msg
	}
	out.Extras = append([]CustomExtra(nil), c.Extras...)
	return &out
}

// LineItem is one cart row. UnitPrice is the last catalog price seen, not a quote.
type LineItem struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	CustomConfig *CustomConfig   `json:"custom_config,omitempty"`
}

func (l LineItem) IsCustom() bool {
	return l.CustomConfig != nil
}

// GuestInfo is the contact a guest may attach before checkout.
type GuestInfo struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Cart is the mutable staging area owned by one identity.
type Cart struct {
	ID          uuid.UUID       `json:"id"`
	Items       []LineItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	GuestInfo   *GuestInfo      `json:"guest_info,omitempty"`
}

// Recalculate restores subtotal = unit × qty per line and total = Σ subtotals.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for i := range c.Items {
		item := &c.Items[i]
		item.UnitPrice = item.UnitPrice.Round(2)
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(item.Subtotal)
	}
	c.TotalAmount = total.Round(2)
}

// Expired reports whether a guest cart outlived its expiry. User carts never expire.
func (c *Cart) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Clone deep-copies the cart so callers can mutate a draft and discard it on error.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]LineItem, len(c.Items))
	for i, item := range c.Items {
		out.Items[i] = item
		if item.CustomConfig != nil {
			out.Items[i].CustomConfig = item.CustomConfig.clone()
		}
	}
	if c.ExpiresAt != nil {
		exp := *c.ExpiresAt
		out.ExpiresAt = &exp
	}
	if c.GuestInfo != nil {
		info := *c.GuestInfo
		out.GuestInfo = &info
	}
	return &out
}

// QuantityOf sums every line for product, fungible and custom alike, since both
// draw from the same stock.
func (c *Cart) QuantityOf(productID uuid.UUID) int {
	total := 0
	for _, item := range c.Items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total
}

// LineRef addresses a line by index, or by product for the first fungible match.
type LineRef struct {
	Index     *int
	ProductID *uuid.UUID
}

func AtIndex(i int) LineRef           { return LineRef{Index: &i} }
func ForProduct(id uuid.UUID) LineRef { return LineRef{ProductID: &id} }

func (c *Cart) locate(ref LineRef) (int, error) {
	switch {
	case ref.Index != nil:
		if *ref.Index < 0 || *ref.Index >= len(c.Items) {
			return -1, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").
				WithDetails(map[string]any{"index": *ref.Index})
		}
		return *ref.Index, nil
	case ref.ProductID != nil:
		for i, item := range c.Items {
			if item.ProductID == *ref.ProductID && !item.IsCustom() {
				return i, nil
			}
		}
		return -1, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").
			WithDetails(map[string]any{"product_id": ref.ProductID.String()})
	}
	return -1, pkgerrors.New(pkgerrors.CodeValidation, "a line index or product id is required")
}

func (c *Cart) removeAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}
