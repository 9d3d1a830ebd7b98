package promo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

var clock = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *Repository, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	return NewEngine(repo).WithClock(func() time.Time { return clock }), repo, db
}

func seedCode(t *testing.T, db *gorm.DB, code string, kind enums.DiscountType, amount string, mutate func(*models.PromoCode)) {
	t.Helper()
	row := models.PromoCode{
		ID:           uuid.New(),
		Code:         code,
		DiscountType: kind,
		Amount:       decimal.RequireFromString(amount),
		ValidFrom:    clock.Add(-24 * time.Hour),
		ValidTo:      clock.Add(24 * time.Hour),
	}
	if mutate != nil {
		mutate(&row)
	}
	require.NoError(t, db.Create(&row).Error)
}

func intPtr(v int) *int { return &v }

func TestValidateSeededWelcomeCode(t *testing.T) {
	engine, _, _ := newEngine(t)

	res, err := engine.Validate(context.Background(), "welcome10", decimal.RequireFromString("90.97"))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "WELCOME10", res.Code)
	assert.Equal(t, "9.10", res.DiscountAmount.StringFixed(2))
}

func TestValidateRejections(t *testing.T) {
	engine, _, db := newEngine(t)
	seedCode(t, db, "EARLY", enums.DiscountTypeFixed, "5", func(p *models.PromoCode) {
		p.ValidFrom = clock.Add(time.Hour)
	})
	seedCode(t, db, "OLD", enums.DiscountTypeFixed, "5", func(p *models.PromoCode) {
		p.ValidTo = clock.Add(-time.Hour)
	})
	seedCode(t, db, "USEDUP", enums.DiscountTypeFixed, "5", func(p *models.PromoCode) {
		p.UsageLimit = intPtr(2)
		p.UsedCount = 2
	})
	seedCode(t, db, "BIGSPEND", enums.DiscountTypeFixed, "5", func(p *models.PromoCode) {
		p.MinSubtotal = decimal.NewNullDecimal(decimal.NewFromInt(50))
	})

	cases := map[string]string{
		"NOPE":     ReasonNotFound,
		"early":    ReasonNotYetValid,
		"OLD":      ReasonExpired,
		"UsedUp":   ReasonUsageExhausted,
		"BIGSPEND": ReasonBelowMinimum,
	}
	for code, reason := range cases {
		t.Run(code, func(t *testing.T) {
			res, err := engine.Validate(context.Background(), code, decimal.NewFromInt(20))
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, reason, res.Reason)
			assert.True(t, res.DiscountAmount.IsZero())
		})
	}
}

func TestDiscountClampsToSubtotal(t *testing.T) {
	subtotal := decimal.RequireFromString("12.00")
	assert.Equal(t, "12.00", Discount(enums.DiscountTypeFixed, decimal.NewFromInt(20), subtotal).StringFixed(2))
	assert.Equal(t, "12.00", Discount(enums.DiscountTypePercentage, decimal.NewFromInt(150), subtotal).StringFixed(2))
	assert.Equal(t, "1.80", Discount(enums.DiscountTypePercentage, decimal.NewFromInt(15), subtotal).StringFixed(2))
	assert.True(t, Discount(enums.DiscountTypeFixed, decimal.NewFromInt(5), decimal.Zero).IsZero())
	assert.True(t, Discount("bogus", decimal.NewFromInt(5), subtotal).IsZero())
}

func TestIncrementUsageIsGuarded(t *testing.T) {
	engine, repo, db := newEngine(t)
	seedCode(t, db, "ONCE", enums.DiscountTypeFixed, "5", func(p *models.PromoCode) {
		p.UsageLimit = intPtr(1)
	})
	ctx := context.Background()

	require.NoError(t, engine.IncrementUsage(ctx, "once"))
	err := engine.IncrementUsage(ctx, "ONCE")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	row, err := repo.FindByCode(ctx, "Once")
	require.NoError(t, err)
	assert.Equal(t, 1, row.UsedCount)

	res, err := engine.Validate(ctx, "ONCE", decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.Equal(t, ReasonUsageExhausted, res.Reason)
}

func TestIncrementUsageUnlimited(t *testing.T) {
	engine, repo, _ := newEngine(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, engine.IncrementUsage(ctx, "WELCOME10"))
	}
	row, err := repo.FindByCode(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, 3, row.UsedCount)
}

func TestPolicyEnforce(t *testing.T) {
	rejected := Result{Code: "NOPE", Reason: ReasonNotFound}

	assert.NoError(t, PolicySoft.Enforce(rejected))
	err := PolicyStrict.Enforce(rejected)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidPromo))
	assert.NoError(t, PolicyStrict.Enforce(Result{Valid: true}))

	assert.Equal(t, PolicyStrict, ParsePolicy(" STRICT "))
	assert.Equal(t, PolicySoft, ParsePolicy("anything"))
}
