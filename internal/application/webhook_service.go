package application

import (
	"encoding/json"
	"time"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/infrastructure/metrics"
	"eats-pos-link/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookService verifies inbound platform events, records them in the
// bounded event log, forwards provisioning confirmations to the
// activation state machine, and fans the events out to observers.
type WebhookService struct {
	verifier    ports.SignatureVerifier
	log         ports.EventLog
	activations *ActivationService
	publisher   ports.Publisher
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewWebhookService creates the ingestion pipeline.
func NewWebhookService(
	verifier ports.SignatureVerifier,
	log ports.EventLog,
	activations *ActivationService,
	publisher ports.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		verifier:    verifier,
		log:         log,
		activations: activations,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
	}
}

// Ingest processes one webhook delivery. The signature is checked over
// the exact raw body bytes; a re-serialized form would not be
// byte-identical and would break verification. A downstream failure
// while applying a confirmation never fails ingestion: the platform
// must still receive an acknowledgment so it does not retry forever.
func (s *WebhookService) Ingest(rawBody []byte, signatureHeader string) error {
	if err := s.verifier.Verify(rawBody, signatureHeader); err != nil {
		s.metrics.WebhookIngests.WithLabelValues("rejected").Inc()
		s.logger.Warn().Err(err).Msg("Webhook signature verification failed")
		return domain.WrapError(domain.ErrSignatureInvalid,
			"webhook signature invalid",
			"verify the shared webhook secret configuration", err)
	}

	var payload struct {
		EventType string `json:"event_type"`
		StoreID   string `json:"store_id"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		s.metrics.WebhookIngests.WithLabelValues("rejected").Inc()
		return domain.WrapError(domain.ErrBadRequest,
			"webhook payload is not valid JSON",
			"verify the delivery configuration with the platform", err)
	}

	raw := make([]byte, len(rawBody))
	copy(raw, rawBody)
	event := domain.WebhookEvent{
		ID:              uuid.NewString(),
		ReceivedAt:      time.Now(),
		EventType:       payload.EventType,
		ExternalStoreID: payload.StoreID,
		RawPayload:      raw,
	}
	s.log.Append(event)

	switch payload.EventType {
	case domain.EventStoreProvisioned, domain.EventStoreDeprovisioned:
		if payload.StoreID == "" {
			s.logger.Warn().
				Str("eventType", payload.EventType).
				Msg("Provisioning event missing store_id, confirmation skipped")
			break
		}
		s.activations.ApplyConfirmation(payload.StoreID,
			payload.EventType == domain.EventStoreProvisioned)
	}

	s.publisher.Publish(domain.Notification{
		Type:  domain.NotificationEventLogged,
		Event: &event,
	})

	s.metrics.WebhookIngests.WithLabelValues("accepted").Inc()
	s.logger.Info().
		Str("eventType", payload.EventType).
		Str("storeId", payload.StoreID).
		Msg("Webhook event ingested")
	return nil
}

// RecentEvents returns a snapshot of the retained event log,
// most-recent-first.
func (s *WebhookService) RecentEvents() []domain.WebhookEvent {
	return s.log.Recent()
}
