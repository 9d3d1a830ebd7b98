package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/internal/catalog"
	"github.com/angelmondragon/bakery-backend/internal/identity"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

const DefaultGuestTTL = 7 * 24 * time.Hour

// Service owns cart state for both signed-in users and guest sessions.
type Service interface {
	GetOrCreate(ctx context.Context, id identity.Identity) (*Cart, error)
	// Load returns the stored cart without creating one, or nil when none is live.
	Load(ctx context.Context, id identity.Identity) (*Cart, error)
	AddItem(ctx context.Context, id identity.Identity, input AddItemInput) (*Cart, error)
	UpdateItem(ctx context.Context, id identity.Identity, ref LineRef, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, id identity.Identity, ref LineRef) (*Cart, error)
	ClearCart(ctx context.Context, id identity.Identity) error
	RefreshCart(ctx context.Context, id identity.Identity) (*Cart, bool, error)
	ValidateCart(ctx context.Context, id identity.Identity) ([]Issue, error)
	MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID) (*Cart, error)
	SetGuestInfo(ctx context.Context, id identity.Identity, info GuestInfo) (*Cart, error)
}

// AddItemInput is a request to put quantity units of a product in the cart.
// A non-nil Custom always produces a new line.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Custom    *CustomConfig
}

// Issue is one problem found by ValidateCart.
type Issue struct {
	Type         enums.CartIssueType `json:"type"`
	ProductID    uuid.UUID           `json:"product_id"`
	LineIndex    int                 `json:"line_index"`
	Message      string              `json:"message"`
	CurrentPrice *string             `json:"current_price,omitempty"`
	Available    *int                `json:"available,omitempty"`
}

type Options struct {
	GuestTTL time.Duration
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	store    Store
	catalog  catalog.Reader
	guestTTL time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a cart service over the given store and catalog.
func NewService(store Store, products catalog.Reader, opts Options) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if opts.GuestTTL <= 0 {
		opts.GuestTTL = DefaultGuestTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		store:    store,
		catalog:  products,
		guestTTL: opts.GuestTTL,
		logg:     opts.Logger,
		now:      opts.Now,
	}, nil
}

func (s *service) Load(ctx context.Context, id identity.Identity) (*Cart, error) {
	if id == nil {
		return nil, identity.ErrIdentityRequired()
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	if id.Kind() == identity.KindGuest && c.Expired(s.now()) {
		if err := s.store.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return c, nil
}

func (s *service) GetOrCreate(ctx context.Context, id identity.Identity) (*Cart, error) {
	c, err := s.Load(ctx, id)
	if err != nil || c != nil {
		return c, err
	}
	c = &Cart{ID: uuid.New(), Items: []LineItem{}}
	if err := s.save(ctx, id, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) AddItem(ctx context.Context, id identity.Identity, input AddItemInput) (*Cart, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	product, err := s.availableProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	current, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	draft := current.Clone()
	wanted := draft.QuantityOf(product.ID) + input.Quantity
	if wanted > product.Stock {
		return nil, catalog.InsufficientStock(product.ID, wanted, product.Stock)
	}

	if input.Custom != nil {
		priced, unit, err := input.Custom.Quote(product.Price)
		if err != nil {
			return nil, err
		}
		draft.Items = append(draft.Items, LineItem{
			ProductID:    product.ID,
			Name:         product.Name,
			Quantity:     input.Quantity,
			UnitPrice:    unit,
			CustomConfig: priced,
		})
	} else if idx, err := draft.locate(ForProduct(product.ID)); err == nil {
		draft.Items[idx].Quantity += input.Quantity
		draft.Items[idx].UnitPrice = product.Price
		draft.Items[idx].Name = product.Name
	} else {
		draft.Items = append(draft.Items, LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  input.Quantity,
			UnitPrice: product.Price,
		})
	}

	if err := s.save(ctx, id, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) UpdateItem(ctx context.Context, id identity.Identity, ref LineRef, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, id, ref)
	}
	current, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	draft := current.Clone()
	idx, err := draft.locate(ref)
	if err != nil {
		return nil, err
	}
	line := &draft.Items[idx]
	if quantity > line.Quantity {
		product, err := s.availableProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		wanted := draft.QuantityOf(line.ProductID) - line.Quantity + quantity
		if wanted > product.Stock {
			return nil, catalog.InsufficientStock(product.ID, wanted, product.Stock)
		}
	}
	line.Quantity = quantity
	if err := s.save(ctx, id, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) RemoveItem(ctx context.Context, id identity.Identity, ref LineRef) (*Cart, error) {
	current, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	draft := current.Clone()
	idx, err := draft.locate(ref)
	if err != nil {
		return nil, err
	}
	draft.removeAt(idx)
	if err := s.save(ctx, id, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) ClearCart(ctx context.Context, id identity.Identity) error {
	if id == nil {
		return identity.ErrIdentityRequired()
	}
	return s.store.Delete(ctx, id)
}

// RefreshCart rewrites the cart against the current catalog: prices are
// replaced, quantities are clamped to stock, and lines whose product is gone
// or sold out are dropped.
func (s *service) RefreshCart(ctx context.Context, id identity.Identity) (*Cart, bool, error) {
	current, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, false, err
	}
	draft := current.Clone()
	changed := false

	products, err := s.lookup(ctx, draft)
	if err != nil {
		return nil, false, err
	}
	remaining := stockBudget(products)
	kept := draft.Items[:0]
	for _, line := range draft.Items {
		product := products[line.ProductID]
		if product == nil || remaining[line.ProductID] <= 0 {
			changed = true
			continue
		}
		price, err := currentUnitPrice(line, product)
		if err != nil {
			return nil, false, err
		}
		if !price.Equal(line.UnitPrice) {
			line.UnitPrice = price
			changed = true
		}
		if line.Quantity > remaining[line.ProductID] {
			line.Quantity = remaining[line.ProductID]
			changed = true
		}
		remaining[line.ProductID] -= line.Quantity
		line.Name = product.Name
		kept = append(kept, line)
	}
	draft.Items = kept

	if !changed {
		return current, false, nil
	}
	if err := s.save(ctx, id, draft); err != nil {
		return nil, false, err
	}
	return draft, true, nil
}

// ValidateCart reports what RefreshCart would change without changing it.
func (s *service) ValidateCart(ctx context.Context, id identity.Identity) ([]Issue, error) {
	current, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return []Issue{}, nil
	}
	products, err := s.lookup(ctx, current)
	if err != nil {
		return nil, err
	}
	remaining := stockBudget(products)
	issues := []Issue{}
	for i, line := range current.Items {
		product := products[line.ProductID]
		if product == nil || product.Stock <= 0 {
			issues = append(issues, Issue{
				Type:      enums.CartIssueProductRemoved,
				ProductID: line.ProductID,
				LineIndex: i,
				Message:   fmt.Sprintf("%s is no longer available", displayName(line.Name)),
			})
			continue
		}
		price, err := currentUnitPrice(line, product)
		if err != nil {
			return nil, err
		}
		if !price.Equal(line.UnitPrice) {
			p := price.StringFixed(2)
			issues = append(issues, Issue{
				Type:         enums.CartIssuePriceChanged,
				ProductID:    line.ProductID,
				LineIndex:    i,
				Message:      fmt.Sprintf("price of %s changed from %s to %s", product.Name, line.UnitPrice.StringFixed(2), p),
				CurrentPrice: &p,
			})
		}
		if line.Quantity > remaining[line.ProductID] {
			available := remaining[line.ProductID]
			if available < 0 {
				available = 0
			}
			issues = append(issues, Issue{
				Type:      enums.CartIssueInsufficientStock,
				ProductID: line.ProductID,
				LineIndex: i,
				Message:   fmt.Sprintf("only %d of %s left in stock", available, product.Name),
				Available: &available,
			})
		}
		remaining[line.ProductID] -= line.Quantity
	}
	return issues, nil
}

// MergeGuestCart replays every guest line onto the user's cart. Lines that no
// longer fit are logged and skipped. The guest cart is deleted either way.
func (s *service) MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, identity.ErrIdentityRequired()
	}
	user := identity.User{UserID: userID}
	if sessionID == "" {
		return s.GetOrCreate(ctx, user)
	}
	guest := identity.Guest{SessionID: sessionID}

	guestCart, err := s.Load(ctx, guest)
	if err != nil {
		return nil, err
	}
	if guestCart == nil {
		return s.GetOrCreate(ctx, user)
	}

	for i, line := range guestCart.Items {
		_, err := s.AddItem(ctx, user, AddItemInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Custom:    line.CustomConfig,
		})
		if err == nil {
			continue
		}
		if s.logg != nil {
			lctx := s.logg.WithFields(ctx, map[string]any{
				"product_id": line.ProductID.String(),
				"line_index": i,
				"error":      err.Error(),
			})
			s.logg.Warn(lctx, "skipped guest cart line during merge")
		}
	}

	if err := s.store.Delete(ctx, guest); err != nil {
		return nil, err
	}
	return s.GetOrCreate(ctx, user)
}

func (s *service) SetGuestInfo(ctx context.Context, id identity.Identity, info GuestInfo) (*Cart, error) {
	if id == nil || id.Kind() != identity.KindGuest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest details only apply to guest carts")
	}
	if info.Name == "" || (info.Email == nil && info.Phone == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest name and an email or phone are required")
	}
	current, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	draft := current.Clone()
	draft.GuestInfo = &info
	if err := s.save(ctx, id, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// save recalculates totals and slides a guest cart's expiry forward.
func (s *service) save(ctx context.Context, id identity.Identity, c *Cart) error {
	now := s.now().UTC()
	c.Recalculate()
	c.UpdatedAt = now
	var ttl time.Duration
	if id.Kind() == identity.KindGuest {
		expires := now.Add(s.guestTTL)
		c.ExpiresAt = &expires
		ttl = s.guestTTL
	} else {
		c.ExpiresAt = nil
	}
	return s.store.Put(ctx, id, c, ttl)
}

func (s *service) availableProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, catalog.ProductNotFound(id)
	}
	if product.Stock <= 0 {
		return nil, catalog.OutOfStock(product.ID, product.Name)
	}
	return product, nil
}

func (s *service) lookup(ctx context.Context, c *Cart) (map[uuid.UUID]*catalog.Product, error) {
	out := make(map[uuid.UUID]*catalog.Product, len(c.Items))
	for _, line := range c.Items {
		if _, seen := out[line.ProductID]; seen {
			continue
		}
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		out[line.ProductID] = product
	}
	return out, nil
}

func stockBudget(products map[uuid.UUID]*catalog.Product) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(products))
	for id, p := range products {
		if p != nil {
			out[id] = p.Stock
		}
	}
	return out
}

func currentUnitPrice(line LineItem, product *catalog.Product) (decimal.Decimal, error) {
	if line.CustomConfig == nil {
		return product.Price, nil
	}
	return line.CustomConfig.UnitPrice(product.Price)
}

func displayName(name string) string {
	if name == "" {
		return "product"
	}
	return name
}
