package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/identity"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/redis"
)

const defaultSweepBatch = 200

type cartKeyspace interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	Get(ctx context.Context, key string) (string, error)
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
	CartPattern(kind string) string
}

type GuestCartSweepJobParams struct {
	Logger    *logger.Logger
	Store     cartKeyspace
	BatchSize int64
}

// NewGuestCartSweepJob removes guest carts whose stored expiry has passed. Cart
// reads already ignore expired carts; the sweep only reclaims space. A cart is
// deleted only if it still holds the value the sweep judged, so a guest write
// that lands in between keeps the cart.
func NewGuestCartSweepJob(params GuestCartSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("cart keyspace required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &guestCartSweepJob{
		logg:  params.Logger,
		store: params.Store,
		batch: batch,
		now:   time.Now,
	}, nil
}

type guestCartSweepJob struct {
	logg  *logger.Logger
	store cartKeyspace
	batch int64
	now   func() time.Time
}

func (j *guestCartSweepJob) Name() string { return "guest-cart-sweep" }

func (j *guestCartSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	pattern := j.store.CartPattern(string(identity.KindGuest))

	var (
		errs                   error
		scanned, removed, kept int
		unreadable             int
		cursor                 uint64
	)
	for {
		keys, next, err := j.store.Scan(ctx, cursor, pattern, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("scan guest carts: %w", err))
		}
		scanned += len(keys)

		for _, key := range keys {
			raw, err := j.store.Get(ctx, key)
			if redis.IsNil(err) {
				continue
			}
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("read %s: %w", key, err))
				continue
			}
			var c cart.Cart
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				unreadable++
			} else if !c.Expired(now) {
				continue
			}

			deleted, err := j.store.DeleteIfValue(ctx, key, raw)
			switch {
			case err != nil:
				errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", key, err))
			case deleted:
				removed++
			default:
				kept++
			}
		}

		cursor = next
		if cursor == 0 || ctx.Err() != nil {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"keys_scanned": scanned,
		"carts_swept":  removed,
		"carts_kept":   kept,
		"unreadable":   unreadable,
	})
	j.logg.Info(logCtx, "guest cart sweep complete")
	return multierr.Append(errs, ctx.Err())
}
