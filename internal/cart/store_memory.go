package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/angelmondragon/bakery-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

// MemoryStore is the process-local store. Carts are kept serialized so callers
// never share a *Cart. The ttl argument is ignored; guest expiry is decided
// from Cart.ExpiresAt on read.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[string][]byte{}}
}

func (s *MemoryStore) Get(_ context.Context, id identity.Identity) (*Cart, error) {
	s.mu.RLock()
	raw, ok := s.carts[identity.Key(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	return &c, nil
}

func (s *MemoryStore) Put(_ context.Context, id identity.Identity, c *Cart, _ time.Duration) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	s.mu.Lock()
	s.carts[identity.Key(id)] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id identity.Identity) error {
	s.mu.Lock()
	delete(s.carts, identity.Key(id))
	s.mu.Unlock()
	return nil
}

// Len is the number of stored carts, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}
