package application

import (
	"context"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"

	"github.com/rs/zerolog"
)

// StoreService populates and serves the store directory.
type StoreService struct {
	directory   ports.StoreRepository
	activations *ActivationService
	auth        *AuthService
	client      ports.DeliveryClient
	logger      zerolog.Logger
}

// NewStoreService creates the store directory service.
func NewStoreService(
	directory ports.StoreRepository,
	activations *ActivationService,
	auth *AuthService,
	client ports.DeliveryClient,
	logger zerolog.Logger,
) *StoreService {
	return &StoreService{
		directory:   directory,
		activations: activations,
		auth:        auth,
		client:      client,
		logger:      logger,
	}
}

// SyncStores fetches one page of the merchant's directory from the
// platform and upserts every store. Each store observed for the first
// time starts in the pending activation state.
func (s *StoreService) SyncStores(ctx context.Context, sessionKey, pageToken string, pageSize int) ([]domain.StoreRecord, string, error) {
	token, err := s.auth.ValidToken(ctx, sessionKey)
	if err != nil {
		return nil, "", err
	}

	page, err := s.client.ListStores(ctx, token, pageToken, pageSize)
	if err != nil {
		s.logger.Error().Err(err).
			Str("sessionKey", sessionKey).
			Msg("Directory fetch failed")
		return nil, "", err
	}

	records := make([]domain.StoreRecord, 0, len(page.Stores))
	for _, upstream := range page.Stores {
		record := s.directory.Upsert(domain.StoreRecord{
			ExternalStoreID: upstream.StoreID,
			InternalLabel:   domain.DeriveInternalLabel(upstream.Name, upstream.StoreID),
			OwnerSessionKey: sessionKey,
			DisplayName:     upstream.Name,
			Address:         upstream.Address,
		})
		s.activations.Observe(record.ExternalStoreID)
		records = append(records, record)
	}

	s.logger.Info().
		Str("sessionKey", sessionKey).
		Int("stores", len(records)).
		Msg("Store directory synced")

	return records, page.NextPageToken, nil
}

// ListStores returns the directory entries owned by the session.
func (s *StoreService) ListStores(sessionKey string) []domain.StoreRecord {
	return s.directory.ListBySession(sessionKey)
}

// GetStore returns one directory entry, or nil.
func (s *StoreService) GetStore(externalStoreID string) *domain.StoreRecord {
	return s.directory.Get(externalStoreID)
}
