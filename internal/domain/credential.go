package domain

import "time"

// Credential holds the tokens obtained for one merchant session.
// Replaced wholesale on refresh, never mutated in place.
type Credential struct {
	SessionKey   string    `json:"session_key"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at"`
	TTLSeconds   int64     `json:"ttl_seconds"`
}

// ExpiresAt returns the moment the access token stops being usable.
func (c *Credential) ExpiresAt() time.Time {
	return c.ObtainedAt.Add(time.Duration(c.TTLSeconds) * time.Second)
}

// FreshWithin reports whether the token is still valid for at least
// the given safety margin.
func (c *Credential) FreshWithin(margin time.Duration) bool {
	return time.Now().Add(margin).Before(c.ExpiresAt())
}

// Refreshable reports whether the credential can be refreshed at all.
func (c *Credential) Refreshable() bool {
	return c.RefreshToken != ""
}

// PendingAuthorization is the single-use nonce created when a login
// flow starts. It binds the OAuth state parameter to the session that
// initiated the redirect and is consumed exactly once by the callback.
type PendingAuthorization struct {
	State      string    `json:"state"`
	SessionKey string    `json:"session_key"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the nonce is past its validity window.
func (p *PendingAuthorization) Expired() bool {
	return time.Now().After(p.ExpiresAt)
}
