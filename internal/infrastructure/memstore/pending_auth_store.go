package memstore

import (
	"sync"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"
)

// PendingAuthStore holds single-use login nonces. Consume removes the
// entry under the lock, so a replayed callback can never observe it a
// second time.
type PendingAuthStore struct {
	mu      sync.Mutex
	pending map[string]domain.PendingAuthorization
}

// NewPendingAuthStore creates an empty pending-authorization store.
func NewPendingAuthStore() ports.PendingAuthRepository {
	return &PendingAuthStore{
		pending: make(map[string]domain.PendingAuthorization),
	}
}

func (s *PendingAuthStore) Create(auth *domain.PendingAuthorization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[auth.State] = *auth
}

func (s *PendingAuthStore) Consume(state string) *domain.PendingAuthorization {
	s.mu.Lock()
	defer s.mu.Unlock()
	auth, ok := s.pending[state]
	if !ok {
		return nil
	}
	delete(s.pending, state)
	if auth.Expired() {
		return nil
	}
	return &auth
}
