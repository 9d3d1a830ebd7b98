package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/internal/repo"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

// Store loads promo codes and records redemptions.
type Store interface {
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, code string) (bool, error)
}

type Repository struct {
	repo.Base
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db), now: time.Now}
}

// FindByCode matches case-insensitively and returns (nil, nil) when no code exists.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var row models.PromoCode
	err := r.DB(ctx).Where("lower(code) = ?", normalize(code)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	return &row, nil
}

// IncrementUsage adds one redemption unless the usage limit is already reached.
// It reports false when the guard rejected the update.
func (r *Repository) IncrementUsage(ctx context.Context, code string) (bool, error) {
	res := r.DB(ctx).Model(&models.PromoCode{}).
		Where("lower(code) = ? AND (usage_limit IS NULL OR used_count < usage_limit)", normalize(code)).
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": r.now().UTC(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment promo usage")
	}
	return res.RowsAffected == 1, nil
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
