package cart

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/bakery-backend/internal/identity"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

type fallbackRecorder interface {
	IncCartFallback(op string)
}

// FallbackOptions tunes the primary store's timeout and circuit breaker.
type FallbackOptions struct {
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
	// TombstoneTTL bounds how long a delete the primary missed is remembered.
	TombstoneTTL time.Duration
	Metrics      fallbackRecorder
	Logger       *logger.Logger
}

// FallbackStore serves every call from the primary store under a short
// timeout and a circuit breaker, and from the secondary store when the primary
// fails or the breaker is open. Callers never see a primary failure.
//
// A delete the primary could not apply leaves a process-local tombstone, so
// the stale primary copy is neither served nor kept once the primary returns.
// Tombstones are per instance; another instance can still read the stale copy
// until its own write or delete reaches the primary.
type FallbackStore struct {
	primary   Store
	secondary Store
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker[*Cart]
	metrics   fallbackRecorder
	logg      *logger.Logger

	mu         sync.Mutex
	tombstones map[string]time.Time
	tombTTL    time.Duration
	now        func() time.Time
}

func NewFallbackStore(primary, secondary Store, opts FallbackOptions) *FallbackStore {
	if opts.Timeout <= 0 {
		opts.Timeout = 150 * time.Millisecond
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	if opts.TombstoneTTL <= 0 {
		opts.TombstoneTTL = 7 * 24 * time.Hour
	}
	s := &FallbackStore{
		primary:    primary,
		secondary:  secondary,
		timeout:    opts.Timeout,
		metrics:    opts.Metrics,
		logg:       opts.Logger,
		tombstones: map[string]time.Time{},
		tombTTL:    opts.TombstoneTTL,
		now:        time.Now,
	}
	failures := opts.BreakerFailures
	s.breaker = gobreaker.NewCircuitBreaker[*Cart](gobreaker.Settings{
		Name:        "cart-store",
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if s.logg == nil {
				return
			}
			ctx := s.logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			s.logg.Warn(ctx, "cart store breaker changed state")
		},
	})
	return s
}

func (s *FallbackStore) Get(ctx context.Context, id identity.Identity) (*Cart, error) {
	if s.buried(id) {
		// Retry the missed delete; until it lands only the secondary is trusted.
		if err := s.deletePrimary(ctx, id); err == nil {
			s.unbury(id)
		}
		return s.secondary.Get(ctx, id)
	}
	c, err := s.breaker.Execute(func() (*Cart, error) {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.primary.Get(pctx, id)
	})
	if err != nil {
		s.degraded(ctx, "get", err)
		return s.secondary.Get(ctx, id)
	}
	if c != nil {
		return c, nil
	}
	// A cart written while the primary was down is still served until it is rewritten.
	return s.secondary.Get(ctx, id)
}

func (s *FallbackStore) Put(ctx context.Context, id identity.Identity, c *Cart, ttl time.Duration) error {
	_, err := s.breaker.Execute(func() (*Cart, error) {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.primary.Put(pctx, id, c, ttl)
	})
	if err != nil {
		s.degraded(ctx, "put", err)
		return s.secondary.Put(ctx, id, c, ttl)
	}
	s.unbury(id)
	return s.secondary.Delete(ctx, id)
}

func (s *FallbackStore) Delete(ctx context.Context, id identity.Identity) error {
	if err := s.deletePrimary(ctx, id); err != nil {
		s.degraded(ctx, "delete", err)
		s.bury(id)
	} else {
		s.unbury(id)
	}
	return s.secondary.Delete(ctx, id)
}

func (s *FallbackStore) deletePrimary(ctx context.Context, id identity.Identity) error {
	_, err := s.breaker.Execute(func() (*Cart, error) {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.primary.Delete(pctx, id)
	})
	return err
}

func (s *FallbackStore) bury(id identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, until := range s.tombstones {
		if !now.Before(until) {
			delete(s.tombstones, key)
		}
	}
	s.tombstones[identity.Key(id)] = now.Add(s.tombTTL)
}

func (s *FallbackStore) unbury(id identity.Identity) {
	s.mu.Lock()
	delete(s.tombstones, identity.Key(id))
	s.mu.Unlock()
}

func (s *FallbackStore) buried(id identity.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.tombstones[identity.Key(id)]
	if ok && !s.now().Before(until) {
		delete(s.tombstones, identity.Key(id))
		return false
	}
	return ok
}

// State exposes the breaker state for readiness reporting.
func (s *FallbackStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *FallbackStore) degraded(ctx context.Context, op string, err error) {
	if s.metrics != nil {
		s.metrics.IncCartFallback(op)
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"op": op, "error": err.Error()})
		s.logg.Warn(ctx, "cart store degraded to process-local fallback")
	}
}
