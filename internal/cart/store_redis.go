package cart

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/bakery-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(kind, id string) string
}

// RedisStore keeps each cart as one JSON value under bk:cart:<kind>:<id>.
type RedisStore struct {
	kv redisKV
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{kv: client}
}

func (s *RedisStore) key(id identity.Identity) string {
	return s.kv.CartKey(string(id.Kind()), id.ID())
}

func (s *RedisStore) Get(ctx context.Context, id identity.Identity) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.key(id))
	if redis.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart from cache")
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cached cart")
	}
	return &c, nil
}

func (s *RedisStore) Put(ctx context.Context, id identity.Identity, c *Cart, ttl time.Duration) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.kv.Set(ctx, s.key(id), raw, ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart to cache")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id identity.Identity) error {
	if err := s.kv.Del(ctx, s.key(id)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cached cart")
	}
	return nil
}
