package main

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/metrics"
	"github.com/angelmondragon/bakery-backend/pkg/redis"
)

const startupPingTimeout = 2 * time.Second

// connectRedis never fails on an unreachable server: carts fall back to memory
// and idempotency and rate limits fail open until it comes back. A missing or
// malformed address is fatal only while Redis backs carts.
func connectRedis(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*redis.Client, error) {
	client, err := redis.Open(cfg.Redis)
	if err != nil {
		if cfg.Cart.UsesRedis() {
			return nil, fmt.Errorf("redis cart store: %w", err)
		}
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis not configured; idempotency and rate limits disabled")
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	ctx = logg.WithField(ctx, "addr", client.Addr())
	if err := client.Ping(pingCtx); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis unreachable at startup; serving degraded until it recovers")
		return client, nil
	}
	logg.Info(ctx, "redis connection established")
	return client, nil
}

// newCartStore is the memory store alone, or Redis behind the breaker with the
// memory store as fallback.
func newCartStore(cfg *config.Config, client *redis.Client, recorder *metrics.CheckoutMetrics, logg *logger.Logger) cart.Store {
	memory := cart.NewMemoryStore()
	if !cfg.Cart.UsesRedis() || client == nil {
		return memory
	}
	return cart.NewFallbackStore(cart.NewRedisStore(client), memory, cart.FallbackOptions{
		Timeout:         cfg.Cart.CacheTimeout,
		BreakerFailures: cfg.Cart.BreakerFailures,
		BreakerCooldown: cfg.Cart.BreakerCooldown,
		TombstoneTTL:    cfg.Cart.GuestTTL,
		Metrics:         recorder,
		Logger:          logg,
	})
}
