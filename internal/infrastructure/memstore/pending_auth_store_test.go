package memstore

import (
	"sync"
	"testing"
	"time"

	"eats-pos-link/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingAuth(state string, ttl time.Duration) *domain.PendingAuthorization {
	now := time.Now()
	return &domain.PendingAuthorization{
		State:      state,
		SessionKey: "session-1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func TestConsumeReturnsPendingAuth(t *testing.T) {
	store := NewPendingAuthStore()
	store.Create(pendingAuth("abc123", time.Minute))

	auth := store.Consume("abc123")
	require.NotNil(t, auth)
	assert.Equal(t, "session-1", auth.SessionKey)
}

func TestConsumeIsSingleUse(t *testing.T) {
	store := NewPendingAuthStore()
	store.Create(pendingAuth("abc123", time.Minute))

	require.NotNil(t, store.Consume("abc123"))
	assert.Nil(t, store.Consume("abc123"), "replayed state must not resolve")
}

func TestConsumeUnknownState(t *testing.T) {
	store := NewPendingAuthStore()
	assert.Nil(t, store.Consume("never-created"))
}

func TestConsumeExpiredState(t *testing.T) {
	store := NewPendingAuthStore()
	store.Create(pendingAuth("stale", -time.Second))

	assert.Nil(t, store.Consume("stale"))
}

func TestConsumeUnderContention(t *testing.T) {
	store := NewPendingAuthStore()
	store.Create(pendingAuth("abc123", time.Minute))

	var mu sync.Mutex
	var wins int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Consume("abc123") != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one caller may consume a state")
}
