// Package promo validates discount codes and prices the discount they grant.
package promo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

// Reasons a code can be rejected.
const (
	ReasonNotFound       = "not_found"
	ReasonNotYetValid    = "not_yet_valid"
	ReasonExpired        = "expired"
	ReasonUsageExhausted = "usage_limit_reached"
	ReasonBelowMinimum   = "below_min_subtotal"
)

// Result is the outcome of validating one code against one subtotal.
type Result struct {
	Code           string
	Valid          bool
	DiscountAmount decimal.Decimal
	Reason         string
}

type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock replaces the engine's clock. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Validate checks existence, the validity window, and remaining usage, then
// prices the discount. Only infrastructure failures are returned as errors.
func (e *Engine) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (Result, error) {
	code = strings.TrimSpace(code)
	res := Result{Code: code, DiscountAmount: decimal.Zero}
	row, err := e.store.FindByCode(ctx, code)
	if err != nil {
		return res, err
	}
	if row == nil {
		res.Reason = ReasonNotFound
		return res, nil
	}
	res.Code = row.Code

	now := e.now()
	switch {
	case now.Before(row.ValidFrom):
		res.Reason = ReasonNotYetValid
		return res, nil
	case now.After(row.ValidTo):
		res.Reason = ReasonExpired
		return res, nil
	}
	if row.UsageLimit != nil && row.UsedCount >= *row.UsageLimit {
		res.Reason = ReasonUsageExhausted
		return res, nil
	}
	if row.MinSubtotal.Valid && subtotal.LessThan(row.MinSubtotal.Decimal) {
		res.Reason = ReasonBelowMinimum
		return res, nil
	}

	res.Valid = true
	res.DiscountAmount = Discount(row.DiscountType, row.Amount, subtotal)
	return res, nil
}

// IncrementUsage records one redemption. It runs after the order commits, so a
// code that hit its limit in the meantime is reported, not retried.
func (e *Engine) IncrementUsage(ctx context.Context, code string) error {
	ok, err := e.store.IncrementUsage(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "promo code usage limit reached").
			WithDetails(map[string]any{"code": code})
	}
	return nil
}

// Discount prices a discount and clamps it to [0, subtotal].
func Discount(kind enums.DiscountType, amount, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || !amount.IsPositive() {
		return decimal.Zero
	}
	var off decimal.Decimal
	switch kind {
	case enums.DiscountTypePercentage:
		off = subtotal.Mul(amount).Div(decimal.NewFromInt(100))
	case enums.DiscountTypeFixed:
		off = amount
	default:
		return decimal.Zero
	}
	off = off.Round(2)
	if off.GreaterThan(subtotal) {
		return subtotal
	}
	return off
}

// Policy decides what an invalid code does to checkout.
type Policy string

const (
	// PolicySoft prices an invalid code at zero discount and lets checkout continue.
	PolicySoft Policy = config.PromoPolicySoft
	// PolicyStrict fails checkout on an invalid code.
	PolicyStrict Policy = config.PromoPolicyStrict
)

func ParsePolicy(value string) Policy {
	if strings.EqualFold(strings.TrimSpace(value), string(PolicyStrict)) {
		return PolicyStrict
	}
	return PolicySoft
}

// Enforce returns an InvalidPromo error for a rejected code under the strict policy.
func (p Policy) Enforce(res Result) error {
	if res.Valid || p != PolicyStrict {
		return nil
	}
	return InvalidPromo(res.Code, res.Reason)
}

func InvalidPromo(code, reason string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidPromo, fmt.Sprintf("promo code %q cannot be applied", code)).
		WithDetails(map[string]any{"code": code, "reason": reason})
}
