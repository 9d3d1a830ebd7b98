package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/bakery-backend/internal/identity"
)

// Store persists carts keyed by identity. Get returns (nil, nil) on a miss.
// A ttl of zero means the cart does not expire.
type Store interface {
	Get(ctx context.Context, id identity.Identity) (*Cart, error)
	Put(ctx context.Context, id identity.Identity, cart *Cart, ttl time.Duration) error
	Delete(ctx context.Context, id identity.Identity) error
}
