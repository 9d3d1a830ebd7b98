package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/identity"
	"github.com/angelmondragon/bakery-backend/internal/promo"
	"github.com/angelmondragon/bakery-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// cartSource is the slice of the cart service checkout drains.
type cartSource interface {
	Load(ctx context.Context, id identity.Identity) (*cart.Cart, error)
	ClearCart(ctx context.Context, id identity.Identity) error
}

type stockDecrementer interface {
	DecrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
}

type promoPricer interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (promo.Result, error)
	IncrementUsage(ctx context.Context, code string) error
}

type numberGenerator interface {
	Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error)
}

type checkoutRecorder interface {
	IncOrderCreated()
	IncCheckoutFailure(reason string)
	ObserveCheckout(d time.Duration)
}

// Notifier accepts customer notifications after a commit. Enqueue must not block
// the caller and never reports failure.
type Notifier interface {
	Enqueue(ctx context.Context, event payloads.OrderNotificationEvent)
}
