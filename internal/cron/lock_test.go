package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bakery-backend/pkg/redis"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
}

func mustLock(t *testing.T, client *redis.Client, key string) *RedisLock {
	t.Helper()
	lock, err := NewRedisLock(client, key, time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	return lock
}

func mustAcquire(t *testing.T, lock *RedisLock, want bool) {
	t.Helper()
	ok, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok != want {
		t.Fatalf("acquire = %v, want %v", ok, want)
	}
}

func TestRedisLockIsExclusive(t *testing.T) {
	mr, client := newMiniRedis(t)
	ctx := context.Background()
	key := client.LockKey("cron")
	first, second := mustLock(t, client, key), mustLock(t, client, key)

	mustAcquire(t, first, true)
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected a one minute lease, got %s", ttl)
	}
	mustAcquire(t, second, false)

	// a lock that was never acquired leaves the holder alone
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !mr.Exists(key) {
		t.Fatal("non-owner release freed the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists(key) {
		t.Fatal("owner release should free the lock")
	}
	mustAcquire(t, second, true)
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	mr, client := newMiniRedis(t)
	key := client.LockKey("cron")

	stale := mustLock(t, client, key)
	mustAcquire(t, stale, true)

	mr.FastForward(2 * time.Minute)
	mustAcquire(t, mustLock(t, client, key), true)

	// the stale owner must not free a lock it no longer holds
	if err := stale.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !mr.Exists(key) {
		t.Fatal("stale owner released the new holder's lock")
	}
}

func TestRedisLockHolderNamesInstance(t *testing.T) {
	t.Setenv("BAKERY_INSTANCE_ID", "cron-a")
	_, client := newMiniRedis(t)
	ctx := context.Background()
	lock := mustLock(t, client, client.LockKey("cron"))

	holder, err := lock.Holder(ctx)
	if err != nil || holder != "" {
		t.Fatalf("expected no holder before acquire, got %q, %v", holder, err)
	}

	mustAcquire(t, lock, true)
	holder, err = lock.Holder(ctx)
	if err != nil {
		t.Fatalf("holder: %v", err)
	}
	if !strings.HasPrefix(holder, "cron-a/") {
		t.Fatalf("expected holder to name the instance, got %q", holder)
	}
}
