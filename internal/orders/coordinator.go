package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/internal/accounts"
	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/catalog"
	"github.com/angelmondragon/bakery-backend/internal/identity"
	"github.com/angelmondragon/bakery-backend/internal/promo"
	"github.com/angelmondragon/bakery-backend/pkg/db"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/outbox/payloads"
)

// GuestContact identifies an anonymous customer. Name and one of Email or Phone are required.
type GuestContact struct {
	Name  string
	Email *string
	Phone *string
}

// DirectItem is a line submitted with the order instead of drained from a cart.
// Any client-side price is ignored.
type DirectItem struct {
	ProductID uuid.UUID
	Quantity  int
	Custom    *cart.CustomConfig
}

type CreateOrderInput struct {
	// UserID is set for authenticated checkouts and wins over any guest data.
	UserID *uuid.UUID
	// GuestSessionID selects the guest cart to drain.
	GuestSessionID string
	Guest          *GuestContact
	Items          []DirectItem
	PaymentMethod  enums.PaymentMethod
	PromoCode      *string
	PickupAt       *time.Time
	PickupNotes    *string
}

type CoordinatorDeps struct {
	Tx        txRunner
	Repo      Repository
	Carts     cartSource
	Catalog   catalog.Reader
	Inventory stockDecrementer
	Promo     promoPricer
	Numbers   numberGenerator
	Accounts  accounts.Directory
	Notifier  Notifier
	Metrics   checkoutRecorder
	Logger    *logger.Logger
	Policy    promo.Policy
}

// Coordinator turns a cart or item list into a committed order.
type Coordinator struct {
	tx        txRunner
	repo      Repository
	carts     cartSource
	catalog   catalog.Reader
	inventory stockDecrementer
	promo     promoPricer
	numbers   numberGenerator
	accounts  accounts.Directory
	notifier  Notifier
	metrics   checkoutRecorder
	logg      *logger.Logger
	policy    promo.Policy
	now       func() time.Time
}

func NewCoordinator(deps CoordinatorDeps) (*Coordinator, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart source required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog reader required")
	case deps.Inventory == nil:
		return nil, fmt.Errorf("inventory required")
	case deps.Promo == nil:
		return nil, fmt.Errorf("promo engine required")
	case deps.Numbers == nil:
		return nil, fmt.Errorf("order number generator required")
	case deps.Accounts == nil:
		return nil, fmt.Errorf("account directory required")
	}
	if deps.Policy == "" {
		deps.Policy = promo.PolicySoft
	}
	return &Coordinator{
		tx:        deps.Tx,
		repo:      deps.Repo,
		carts:     deps.Carts,
		catalog:   deps.Catalog,
		inventory: deps.Inventory,
		promo:     deps.Promo,
		numbers:   deps.Numbers,
		accounts:  deps.Accounts,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		policy:    deps.Policy,
		now:       time.Now,
	}, nil
}

type customer struct {
	source identity.Identity
	userID *uuid.UUID
	guest  *GuestContact
	name   string
	email  *string
	phone  *string
}

// CreateOrder runs checkout as one unit: the order, its lines and every stock
// decrement commit together or not at all. Cart clearing, promo usage and the
// confirmation notification happen only after the commit and never fail it.
func (c *Coordinator) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	start := c.now()
	order, err := c.createOrder(ctx, input)
	if c.metrics != nil {
		c.metrics.ObserveCheckout(c.now().Sub(start))
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncCheckoutFailure(failureReason(err))
		}
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.IncOrderCreated()
	}
	return order, nil
}

func (c *Coordinator) createOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid payment method is required")
	}
	cust, err := c.resolveCustomer(ctx, input)
	if err != nil {
		return nil, err
	}

	drainedCart := false
	requested := make([]DirectItem, 0, len(input.Items))
	if cust.source != nil {
		current, err := c.carts.Load(ctx, cust.source)
		if err != nil {
			return nil, err
		}
		if current != nil && len(current.Items) > 0 {
			drainedCart = true
			for _, line := range current.Items {
				requested = append(requested, DirectItem{ProductID: line.ProductID, Quantity: line.Quantity, Custom: line.CustomConfig})
			}
			if cust.guest == nil && cust.userID == nil && current.GuestInfo != nil {
				cust.applyGuest(&GuestContact{Name: current.GuestInfo.Name, Email: current.GuestInfo.Email, Phone: current.GuestInfo.Phone})
			}
		}
	}
	if !drainedCart {
		requested = append(requested, input.Items...)
	}
	if len(requested) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "there is nothing to order")
	}
	if cust.userID == nil && cust.guest == nil {
		return nil, guestContactRequired()
	}

	items, subtotal, err := c.priceLines(ctx, requested)
	if err != nil {
		return nil, err
	}

	discount := decimal.Zero
	var appliedCode *string
	if input.PromoCode != nil && strings.TrimSpace(*input.PromoCode) != "" {
		res, err := c.promo.Validate(ctx, *input.PromoCode, subtotal)
		if err != nil {
			return nil, err
		}
		if err := c.policy.Enforce(res); err != nil {
			return nil, err
		}
		if res.Valid {
			discount = res.DiscountAmount
			code := res.Code
			appliedCode = &code
		} else if c.logg != nil {
			lctx := c.logg.WithFields(ctx, map[string]any{"promo_code": res.Code, "reason": res.Reason})
			c.logg.Warn(lctx, "promo code ignored at checkout")
		}
	}

	order := &models.Order{
		ID:             uuid.New(),
		UserID:         cust.userID,
		CustomerName:   cust.name,
		CustomerEmail:  cust.email,
		CustomerPhone:  cust.phone,
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusPending,
		PaymentMethod:  input.PaymentMethod,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TotalAmount:    subtotal.Sub(discount).Round(2),
		PromoCode:      appliedCode,
		PickupAt:       input.PickupAt,
		PickupNotes:    input.PickupNotes,
		Items:          items,
	}
	if cust.guest != nil {
		order.GuestName = &cust.guest.Name
		order.GuestEmail = cust.guest.Email
		order.GuestPhone = cust.guest.Phone
	}

	err = c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range aggregate(order.Items) {
			if err := c.inventory.DecrementStock(ctx, tx, line.productID, line.quantity); err != nil {
				return err
			}
		}
		number, err := c.numbers.Next(ctx, tx, c.now())
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return c.repo.Create(ctx, tx, order)
	})
	if err != nil {
		switch {
		case pkgerrors.As(err) != nil:
		case db.IsSerializationFailure(err):
			err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout conflicted with a concurrent order; retry")
		default:
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit order")
		}
		return nil, err
	}

	c.afterCommit(ctx, order, cust, drainedCart)
	return order, nil
}

func (c *Coordinator) afterCommit(ctx context.Context, order *models.Order, cust *customer, drainedCart bool) {
	if c.logg != nil {
		ctx = c.logg.WithOrderID(ctx, order.ID.String())
	}
	if drainedCart {
		if err := c.carts.ClearCart(ctx, cust.source); err != nil && c.logg != nil {
			c.logg.Error(ctx, "clear cart after checkout", err)
		}
	}
	if order.PromoCode != nil {
		if err := c.promo.IncrementUsage(ctx, *order.PromoCode); err != nil && c.logg != nil {
			c.logg.Error(ctx, "increment promo usage after checkout", err)
		}
	}
	if c.notifier != nil {
		c.notifier.Enqueue(ctx, notificationFor(order, enums.NotificationTypeOrderConfirmation, nil))
	}
	if c.logg != nil {
		lctx := c.logg.WithFields(ctx, map[string]any{
			"order_number": order.OrderNumber,
			"total_amount": order.TotalAmount.StringFixed(2),
		})
		c.logg.Info(lctx, "order created")
	}
}

func (c *Coordinator) resolveCustomer(ctx context.Context, input CreateOrderInput) (*customer, error) {
	if input.UserID != nil && *input.UserID != uuid.Nil {
		contact, err := c.accounts.Resolve(ctx, *input.UserID)
		if err != nil {
			return nil, err
		}
		uid := *input.UserID
		return &customer{
			source: identity.User{UserID: uid},
			userID: &uid,
			name:   contact.Name,
			email:  contact.Email,
			phone:  contact.Phone,
		}, nil
	}

	cust := &customer{}
	if s := strings.TrimSpace(input.GuestSessionID); s != "" {
		cust.source = identity.Guest{SessionID: s}
	}
	if input.Guest != nil {
		guest := normalizeGuest(*input.Guest)
		if guest.Name == "" || (guest.Email == nil && guest.Phone == nil) {
			return nil, guestContactRequired()
		}
		cust.applyGuest(&guest)
	} else if cust.source == nil {
		return nil, guestContactRequired()
	}
	return cust, nil
}

func (cust *customer) applyGuest(guest *GuestContact) {
	g := normalizeGuest(*guest)
	if g.Name == "" || (g.Email == nil && g.Phone == nil) {
		return
	}
	cust.guest = &g
	cust.name = g.Name
	cust.email = g.Email
	cust.phone = g.Phone
}

// priceLines re-reads every product, prices each line from the catalog and
// checks the aggregate quantity per product against current stock.
func (c *Coordinator) priceLines(ctx context.Context, requested []DirectItem) ([]models.OrderLineItem, decimal.Decimal, error) {
	products := map[uuid.UUID]*catalog.Product{}
	wanted := map[uuid.UUID]int{}
	items := make([]models.OrderLineItem, 0, len(requested))
	subtotal := decimal.Zero

	for _, req := range requested {
		if req.ProductID == uuid.Nil || req.Quantity <= 0 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "every item needs a product and a positive quantity")
		}
		product, ok := products[req.ProductID]
		if !ok {
			p, err := c.catalog.GetProduct(ctx, req.ProductID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			if p == nil {
				return nil, decimal.Zero, catalog.ProductNotFound(req.ProductID)
			}
			products[req.ProductID] = p
			product = p
		}
		wanted[req.ProductID] += req.Quantity

		unit := product.Price.Round(2)
		var custom *models.OrderCustomConfig
		if req.Custom != nil {
			// Re-priced from the price list; whatever the cart or request carried is discarded.
			priced, price, err := req.Custom.Quote(product.Price)
			if err != nil {
				return nil, decimal.Zero, err
			}
			unit = price
			custom = &models.OrderCustomConfig{
				Flavor:         priced.Flavor,
				Size:           priced.Size,
				SizeMultiplier: *priced.SizeMultiplier,
				Frosting:       priced.Frosting,
				Message:        priced.Message,
				Extras:         toOrderExtras(priced.Extras),
			}
		}
		lineTotal := unit.Mul(decimal.NewFromInt(int64(req.Quantity))).Round(2)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderLineItem{
			ProductID:    product.ID,
			Name:         product.Name,
			Quantity:     req.Quantity,
			UnitPrice:    unit,
			Subtotal:     lineTotal,
			CustomConfig: custom,
		})
	}

	for id, qty := range wanted {
		product := products[id]
		if product.Stock <= 0 {
			return nil, decimal.Zero, catalog.OutOfStock(product.ID, product.Name)
		}
		if qty > product.Stock {
			return nil, decimal.Zero, catalog.InsufficientStock(product.ID, qty, product.Stock)
		}
	}
	return items, subtotal.Round(2), nil
}

func toOrderExtras(extras []cart.CustomExtra) []models.OrderCustomExtra {
	if len(extras) == 0 {
		return nil
	}
	out := make([]models.OrderCustomExtra, len(extras))
	for i, extra := range extras {
		out[i] = models.OrderCustomExtra{Name: extra.Name, Price: extra.Price}
	}
	return out
}

func normalizeGuest(g GuestContact) GuestContact {
	g.Name = strings.TrimSpace(g.Name)
	g.Email = trimmedOrNil(g.Email)
	g.Phone = trimmedOrNil(g.Phone)
	return g
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func guestContactRequired() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeIdentity, "sign in, or give a name and an email or phone number")
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "unknown"
}

func notificationFor(order *models.Order, kind enums.NotificationType, extra map[string]any) payloads.OrderNotificationEvent {
	return payloads.OrderNotificationEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Type:        kind,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Recipient: payloads.Recipient{
			Name:  order.CustomerName,
			Email: order.CustomerEmail,
			Phone: order.CustomerPhone,
		},
		Context: extra,
	}
}
