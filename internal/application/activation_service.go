package application

import (
	"context"
	"sync"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/infrastructure/metrics"
	"eats-pos-link/internal/ports"

	"github.com/rs/zerolog"
)

// ActivationService drives store activation against the platform and
// merges webhook confirmations into the canonical status. It is the
// only writer of the activation status table.
type ActivationService struct {
	directory ports.StoreRepository
	statuses  ports.ActivationRepository
	auth      *AuthService
	client    ports.DeliveryClient
	publisher ports.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	// mu serializes status transitions so two concurrent activation
	// requests cannot both issue the upstream call, and a racing
	// confirmation is never overwritten by a slower API response.
	mu sync.Mutex
}

// NewActivationService creates the activation state machine.
func NewActivationService(
	directory ports.StoreRepository,
	statuses ports.ActivationRepository,
	auth *AuthService,
	client ports.DeliveryClient,
	publisher ports.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ActivationService {
	return &ActivationService{
		directory: directory,
		statuses:  statuses,
		auth:      auth,
		client:    client,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Observe initializes a store's status to pending the first time it is
// seen. Later observations leave the status alone.
func (s *ActivationService) Observe(externalStoreID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses.Get(externalStoreID) == domain.StatusUnknown {
		s.statuses.Set(externalStoreID, domain.StatusPending)
	}
}

// Status returns the canonical activation status for a store.
func (s *ActivationService) Status(externalStoreID string) domain.ActivationStatus {
	return s.statuses.Get(externalStoreID)
}

// RequestActivation issues the provisioning call for a store. It is
// idempotent: a store already awaiting confirmation or activated is
// returned as-is without a duplicate upstream call. A failed or
// timed-out request reverts the store to pending so a retry is safe.
func (s *ActivationService) RequestActivation(ctx context.Context, externalStoreID string) (domain.ActivationStatus, error) {
	store := s.directory.Get(externalStoreID)
	if store == nil {
		return domain.StatusUnknown, domain.NewError(domain.ErrUnknownStore,
			"no directory record for store "+externalStoreID,
			"fetch the store directory first, then verify the store id")
	}

	s.mu.Lock()
	current := s.statuses.Get(externalStoreID)
	switch current {
	case domain.StatusAwaitingConfirmation, domain.StatusActivated:
		// Already requested or confirmed, do not re-issue upstream.
		s.mu.Unlock()
		return current, nil
	case domain.StatusRequesting:
		// Another request is in flight for this store.
		s.mu.Unlock()
		return current, nil
	}
	s.statuses.Set(externalStoreID, domain.StatusRequesting)
	s.mu.Unlock()

	token, err := s.auth.ValidToken(ctx, store.OwnerSessionKey)
	if err != nil {
		s.transitionIfRequesting(externalStoreID, domain.StatusPending)
		s.metrics.ActivationRequests.WithLabelValues("credential_error").Inc()
		return domain.StatusPending, err
	}

	err = s.client.ActivateStore(ctx, token, ports.ActivationRequest{
		MerchantStoreID:   store.ExternalStoreID,
		IntegratorStoreID: store.InternalLabel,
	})
	if err != nil {
		s.transitionIfRequesting(externalStoreID, domain.StatusPending)
		s.metrics.ActivationRequests.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).
			Str("storeId", externalStoreID).
			Msg("Activation request failed, store reverted to pending")
		return s.statuses.Get(externalStoreID), err
	}

	// The 2xx only means the request was accepted; activation is
	// proven by the confirmation event. A confirmation that raced
	// ahead of this response wins.
	s.transitionIfRequesting(externalStoreID, domain.StatusAwaitingConfirmation)
	s.metrics.ActivationRequests.WithLabelValues("accepted").Inc()

	status := s.statuses.Get(externalStoreID)
	s.logger.Info().
		Str("storeId", externalStoreID).
		Str("status", status.String()).
		Msg("Activation request accepted")
	return status, nil
}

// ApplyConfirmation merges an authoritative confirmation event into
// the canonical status. It applies regardless of the store's current
// state: confirmations may arrive before, after, or instead of the
// API response, and for stores never requested through this service.
// Conflicting confirmations resolve last-write-wins in receipt order.
func (s *ActivationService) ApplyConfirmation(externalStoreID string, confirmed bool) {
	status := domain.StatusDeactivated
	if confirmed {
		status = domain.StatusActivated
	}

	if s.directory.Get(externalStoreID) == nil {
		s.logger.Warn().
			Str("storeId", externalStoreID).
			Msg("Confirmation for store not in directory, applying anyway")
	}

	s.mu.Lock()
	s.statuses.Set(externalStoreID, status)
	s.mu.Unlock()

	s.publisher.Publish(domain.Notification{
		Type:            domain.NotificationStatusChanged,
		ExternalStoreID: externalStoreID,
		Status:          status,
	})

	s.logger.Info().
		Str("storeId", externalStoreID).
		Str("status", status.String()).
		Msg("Confirmation applied")
}

// transitionIfRequesting moves the store out of the requesting state
// unless a confirmation already resolved it.
func (s *ActivationService) transitionIfRequesting(externalStoreID string, to domain.ActivationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses.Get(externalStoreID) == domain.StatusRequesting {
		s.statuses.Set(externalStoreID, to)
	}
}
