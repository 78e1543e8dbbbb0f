package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/infrastructure/metrics"
	"eats-pos-link/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// refreshSafetyMargin is how long before expiry a token is treated as
// expiring and refreshed ahead of use.
const refreshSafetyMargin = 60 * time.Second

// loginWindow bounds how long a login redirect stays redeemable.
const loginWindow = 10 * time.Minute

// AuthService owns the credential lifecycle: login redirects, the
// authorization-code exchange, and token refresh with per-session
// refresh collapsing.
type AuthService struct {
	creds   ports.CredentialRepository
	pending ports.PendingAuthRepository
	client  ports.DeliveryClient
	metrics *metrics.Metrics
	logger  zerolog.Logger

	// refresh collapses concurrent refreshes onto one upstream call
	// per session key. Refresh tokens are effectively single-use
	// upstream, so parallel refreshes would invalidate each other.
	refresh singleflight.Group
}

// NewAuthService creates the credential lifecycle manager.
func NewAuthService(
	creds ports.CredentialRepository,
	pending ports.PendingAuthRepository,
	client ports.DeliveryClient,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		creds:   creds,
		pending: pending,
		client:  client,
		metrics: m,
		logger:  logger,
	}
}

// BeginLogin creates a single-use state nonce bound to the session and
// returns the authorization redirect embedding it.
func (s *AuthService) BeginLogin(sessionKey string) (redirectURL, state string, err error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	state = hex.EncodeToString(stateBytes)

	now := time.Now()
	s.pending.Create(&domain.PendingAuthorization{
		State:      state,
		SessionKey: sessionKey,
		CreatedAt:  now,
		ExpiresAt:  now.Add(loginWindow),
	})

	s.logger.Info().
		Str("sessionKey", sessionKey).
		Msg("Login flow started")

	return s.client.AuthorizeURL(state), state, nil
}

// CompleteLogin consumes the state nonce and exchanges the code for a
// credential. An unknown or already-used nonce is rejected before any
// upstream call is made.
func (s *AuthService) CompleteLogin(ctx context.Context, code, state string) (*domain.Credential, error) {
	auth := s.pending.Consume(state)
	if auth == nil {
		return nil, domain.NewError(domain.ErrInvalidState,
			"login state is unknown, expired, or already used",
			"restart the login flow")
	}

	token, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).
			Str("sessionKey", auth.SessionKey).
			Msg("Authorization code exchange rejected")
		return nil, err
	}

	cred := &domain.Credential{
		SessionKey:   auth.SessionKey,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ObtainedAt:   time.Now(),
		TTLSeconds:   token.ExpiresIn,
	}
	s.creds.Save(cred)

	s.logger.Info().
		Str("sessionKey", auth.SessionKey).
		Int64("ttlSeconds", cred.TTLSeconds).
		Msg("Credential obtained")

	return cred, nil
}

// ValidToken returns an access token usable for at least the safety
// margin, refreshing first when necessary. Concurrent callers that
// observe an expiring credential collapse onto a single refresh and
// all receive its outcome.
func (s *AuthService) ValidToken(ctx context.Context, sessionKey string) (string, error) {
	cred := s.creds.Get(sessionKey)
	if cred == nil {
		return "", domain.NewError(domain.ErrReauthRequired,
			"no credential for this session",
			"re-authenticate with the platform")
	}
	if cred.FreshWithin(refreshSafetyMargin) {
		return cred.AccessToken, nil
	}

	token, err, _ := s.refresh.Do(sessionKey, func() (interface{}, error) {
		return s.refreshCredential(ctx, sessionKey)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// refreshCredential runs inside the collapsed flight. It re-reads the
// stored credential first: a caller that queued behind a completed
// flight must not trigger a second refresh of an already-fresh token.
func (s *AuthService) refreshCredential(ctx context.Context, sessionKey string) (string, error) {
	cred := s.creds.Get(sessionKey)
	if cred == nil {
		return "", domain.NewError(domain.ErrReauthRequired,
			"no credential for this session",
			"re-authenticate with the platform")
	}
	if cred.FreshWithin(refreshSafetyMargin) {
		return cred.AccessToken, nil
	}

	if !cred.Refreshable() {
		s.creds.Delete(sessionKey)
		s.metrics.TokenRefreshes.WithLabelValues("reauth_required").Inc()
		return "", domain.NewError(domain.ErrReauthRequired,
			"credential expired and cannot be refreshed",
			"re-authenticate with the platform")
	}

	token, err := s.client.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if domain.IsKind(err, domain.ErrUpstreamRejected) {
			// The authority refused the refresh token, it is dead.
			s.creds.Delete(sessionKey)
			s.metrics.TokenRefreshes.WithLabelValues("reauth_required").Inc()
			s.logger.Warn().Err(err).
				Str("sessionKey", sessionKey).
				Msg("Refresh token rejected, credential discarded")
			return "", domain.WrapError(domain.ErrReauthRequired,
				"refresh rejected by the platform",
				"re-authenticate with the platform", err)
		}
		// Transport failure or upstream 5xx: the credential stays so
		// the next caller retries through a fresh flight.
		s.metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", err
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}
	next := &domain.Credential{
		SessionKey:   sessionKey,
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ObtainedAt:   time.Now(),
		TTLSeconds:   token.ExpiresIn,
	}
	s.creds.Save(next)
	s.metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	s.logger.Info().
		Str("sessionKey", sessionKey).
		Int64("ttlSeconds", next.TTLSeconds).
		Msg("Credential refreshed")

	return next.AccessToken, nil
}

// Logout discards the session's credential.
func (s *AuthService) Logout(sessionKey string) {
	s.creds.Delete(sessionKey)
	s.logger.Info().
		Str("sessionKey", sessionKey).
		Msg("Session logged out")
}
