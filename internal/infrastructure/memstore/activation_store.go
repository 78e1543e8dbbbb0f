package memstore

import (
	"sync"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"
)

// ActivationStore holds the canonical activation status per store.
type ActivationStore struct {
	mu       sync.RWMutex
	statuses map[string]domain.ActivationStatus
}

// NewActivationStore creates an empty activation status table.
func NewActivationStore() ports.ActivationRepository {
	return &ActivationStore{
		statuses: make(map[string]domain.ActivationStatus),
	}
}

func (s *ActivationStore) Get(externalStoreID string) domain.ActivationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[externalStoreID]
	if !ok {
		return domain.StatusUnknown
	}
	return status
}

func (s *ActivationStore) Set(externalStoreID string, status domain.ActivationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[externalStoreID] = status
}
