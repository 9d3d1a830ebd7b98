package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/identity"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/metrics"
)

func unreachableConfig(driver string) *config.Config {
	cfg := &config.Config{}
	// Nothing listens on port 1.
	cfg.Redis = config.RedisConfig{Address: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond}
	cfg.Cart = config.CartConfig{
		StoreDriver:     driver,
		CacheTimeout:    50 * time.Millisecond,
		GuestTTL:        time.Hour,
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	}
	return cfg
}

func TestConnectRedisToleratesUnreachableServer(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "api-test", Output: io.Discard})
	cfg := unreachableConfig(config.CartStoreRedis)

	client, err := connectRedis(context.Background(), cfg, logg)
	if err != nil {
		t.Fatalf("an unreachable cache must not stop the api: %v", err)
	}
	if client == nil {
		t.Fatal("expected a lazily connecting client")
	}
	t.Cleanup(func() { _ = client.Close() })

	store := newCartStore(cfg, client, metrics.NewCheckoutMetrics(prometheus.NewRegistry()), logg)
	if _, ok := store.(*cart.FallbackStore); !ok {
		t.Fatalf("expected the fallback store, got %T", store)
	}

	ctx := context.Background()
	id := identity.Guest{SessionID: "outage"}
	want := &cart.Cart{ID: uuid.New()}
	if err := store.Put(ctx, id, want, time.Hour); err != nil {
		t.Fatalf("put during outage: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get during outage: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("expected cart %s served from memory, got %+v", want.ID, got)
	}
}

func TestConnectRedisRequiresAddressForRedisCarts(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "api-test", Output: io.Discard})

	cfg := unreachableConfig(config.CartStoreRedis)
	cfg.Redis = config.RedisConfig{}
	if _, err := connectRedis(context.Background(), cfg, logg); err == nil {
		t.Fatal("expected missing redis address to fail with the redis cart store")
	}

	cfg.Cart.StoreDriver = config.CartStoreMemory
	client, err := connectRedis(context.Background(), cfg, logg)
	if err != nil || client != nil {
		t.Fatalf("memory carts run without redis, got client=%v err=%v", client, err)
	}
	if _, ok := newCartStore(cfg, nil, nil, logg).(*cart.MemoryStore); !ok {
		t.Fatal("expected the memory store")
	}
}
