package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialFreshWithin(t *testing.T) {
	cred := &Credential{
		AccessToken: "tok",
		ObtainedAt:  time.Now(),
		TTLSeconds:  3600,
	}
	assert.True(t, cred.FreshWithin(time.Minute))
	assert.False(t, cred.FreshWithin(2*time.Hour))
}

func TestCredentialExpired(t *testing.T) {
	cred := &Credential{
		AccessToken: "tok",
		ObtainedAt:  time.Now().Add(-2 * time.Hour),
		TTLSeconds:  3600,
	}
	assert.False(t, cred.FreshWithin(0))
}

func TestCredentialRefreshable(t *testing.T) {
	assert.True(t, (&Credential{RefreshToken: "ref"}).Refreshable())
	assert.False(t, (&Credential{}).Refreshable())
}

func TestPendingAuthorizationExpired(t *testing.T) {
	live := &PendingAuthorization{ExpiresAt: time.Now().Add(time.Minute)}
	assert.False(t, live.Expired())

	stale := &PendingAuthorization{ExpiresAt: time.Now().Add(-time.Second)}
	assert.True(t, stale.Expired())
}
