package memstore

import (
	"sync"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"
)

// CredentialStore keeps at most one live credential per session for
// the lifetime of the process.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() ports.CredentialRepository {
	return &CredentialStore{
		creds: make(map[string]domain.Credential),
	}
}

func (s *CredentialStore) Save(cred *domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.SessionKey] = *cred
}

func (s *CredentialStore) Get(sessionKey string) *domain.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[sessionKey]
	if !ok {
		return nil
	}
	return &cred
}

func (s *CredentialStore) Delete(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, sessionKey)
}
