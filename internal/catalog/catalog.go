// Package catalog is the read side of products plus the guarded stock writes
// checkout needs. Catalog CRUD lives elsewhere.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/internal/repo"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

// Product is the authoritative price and stock snapshot for one catalog item.
type Product struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
	Stock int
}

// Reader is the read-only view carts depend on. GetProduct returns (nil, nil)
// for products that do not exist or are no longer listed.
type Reader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}

// Inventory mutates stock inside a caller-owned transaction.
type Inventory interface {
	DecrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
	Restock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
}

type Repository struct {
	repo.Base
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db), now: time.Now}
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var row models.Product
	err := r.DB(ctx).Where("id = ? AND is_active = ?", id, true).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &Product{ID: row.ID, Name: row.Name, Price: row.Price.Round(2), Stock: row.Stock}, nil
}

// DecrementStock removes qty units only if at least qty are available. The
// check and the write are a single statement, so concurrent checkouts cannot
// drive stock negative.
func (r *Repository) DecrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.Conn(ctx, tx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return InsufficientStock(id, qty, -1)
	}
	return nil
}

// Restock returns qty units to a product. Only the opt-in cancel compensator uses it.
func (r *Repository) Restock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := r.Conn(ctx, tx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock product")
	}
	return nil
}

// ProductNotFound is the user-facing error for a missing or delisted product.
func ProductNotFound(id uuid.UUID) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeProductNotFound, "product is no longer available").
		WithDetails(map[string]any{"product_id": id.String()})
}

// OutOfStock is returned when a product has no units left at all.
func OutOfStock(id uuid.UUID, name string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("%s is out of stock", displayName(name))).
		WithDetails(map[string]any{"product_id": id.String()})
}

// InsufficientStock is returned when fewer units remain than requested. A
// negative available count means the exact figure is unknown.
func InsufficientStock(id uuid.UUID, requested, available int) *pkgerrors.Error {
	details := map[string]any{"product_id": id.String(), "requested": requested}
	msg := "not enough stock for the requested quantity"
	if available >= 0 {
		details["available"] = available
		msg = fmt.Sprintf("only %d left in stock", available)
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(details)
}

func displayName(name string) string {
	if name == "" {
		return "product"
	}
	return name
}
