package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bakery-backend/internal/repo"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

// Repository persists orders and their line item snapshots.
type Repository interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	SaveLifecycle(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type repository struct {
	repo.Base
	now func() time.Time
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db), now: time.Now}
}

// Create writes the header, then the lines, then the custom configurations.
// IDs are assigned here so children can reference their parents.
func (r *repository) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	conn := r.Conn(ctx, tx)
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := conn.Omit(clause.Associations).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	if len(order.Items) == 0 {
		return nil
	}

	var configs []*models.OrderCustomConfig
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		item.Position = i
		if item.CustomConfig != nil {
			cfg := item.CustomConfig
			if cfg.ID == uuid.Nil {
				cfg.ID = uuid.New()
			}
			cfg.LineItemID = item.ID
			cfg.OrderID = order.ID
			configs = append(configs, cfg)
		}
	}
	if err := conn.Omit(clause.Associations).Create(&order.Items).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
	}
	if len(configs) > 0 {
		if err := conn.Create(configs).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create custom configs")
		}
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*models.Order, error) {
	query := r.Conn(ctx, tx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	err := query.Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := r.loadItems(r.Conn(ctx, tx), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByNumber returns (nil, nil) when no order carries number.
func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).Where("order_number = ?", number).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := r.loadItems(r.DB(ctx), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SaveLifecycle persists the status, payment and lifecycle timestamp columns.
// Line items are never rewritten.
func (r *repository) SaveLifecycle(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	err := r.Conn(ctx, tx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":              order.Status,
			"payment_status":      order.PaymentStatus,
			"cancellation_reason": order.CancellationReason,
			"confirmed_at":        order.ConfirmedAt,
			"cancelled_at":        order.CancelledAt,
			"completed_at":        order.CompletedAt,
			"updated_at":          r.now().UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	return nil
}

func (r *repository) loadItems(conn *gorm.DB, order *models.Order) error {
	var items []models.OrderLineItem
	err := conn.Preload("CustomConfig").
		Where("order_id = ?", order.ID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line items")
	}
	order.Items = items
	return nil
}

// NotFound is returned for lookups by id that match nothing.
func NotFound() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}
