// Package idempotency guards outbox consumers against applying an event twice
// when the publisher redelivers a row it could not mark.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/redis"
)

// Store is the slice of the Redis client a Manager needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var _ Store = (*redis.Client)(nil)

// Manager hands out per-consumer claims on event ids. A claim lives under
// bk:idempotency:evt:<consumer>:<event_id> for the configured TTL.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("idempotency ttl must be positive")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim is the result of trying to take an event for a consumer.
type Claim struct {
	store     Store
	key       string
	duplicate bool
}

// Duplicate reports that another delivery already holds the event.
func (c *Claim) Duplicate() bool { return c.duplicate }

// Release gives the event back, for when the work it guarded rolled back.
// Releasing a duplicate claim is a no-op so the original holder keeps it.
func (c *Claim) Release(ctx context.Context) error {
	if c.duplicate {
		return nil
	}
	return c.store.Del(ctx, c.key)
}

// Claim marks eventID as taken by consumer, or reports it as a duplicate.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (*Claim, error) {
	if consumer == "" {
		return nil, errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return nil, errors.New("event id is required")
	}
	key := m.store.IdempotencyKey("evt:"+consumer, eventID.String())
	set, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return nil, err
	}
	return &Claim{store: m.store, key: key, duplicate: !set}, nil
}
