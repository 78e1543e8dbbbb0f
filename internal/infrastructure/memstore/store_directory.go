package memstore

import (
	"sync"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"
)

// StoreDirectory maps external store ids to their records. Records are
// created or updated on every directory fetch and never deleted; a
// stale record is harmless because correctness rides on the activation
// status, not on presence here.
type StoreDirectory struct {
	mu     sync.RWMutex
	stores map[string]domain.StoreRecord
}

// NewStoreDirectory creates an empty directory.
func NewStoreDirectory() ports.StoreRepository {
	return &StoreDirectory{
		stores: make(map[string]domain.StoreRecord),
	}
}

func (d *StoreDirectory) Upsert(store domain.StoreRecord) domain.StoreRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stores[store.ExternalStoreID] = store
	return store
}

func (d *StoreDirectory) Get(externalStoreID string) *domain.StoreRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	store, ok := d.stores[externalStoreID]
	if !ok {
		return nil
	}
	return &store
}

func (d *StoreDirectory) ListBySession(sessionKey string) []domain.StoreRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []domain.StoreRecord
	for _, store := range d.stores {
		if store.OwnerSessionKey == sessionKey {
			out = append(out, store)
		}
	}
	return out
}
