package ports

import (
	"eats-pos-link/internal/domain"
)

// CredentialRepository holds at most one live credential per session.
type CredentialRepository interface {
	// Save stores the credential, replacing any previous one for the
	// same session.
	Save(cred *domain.Credential)

	// Get returns a copy of the credential for the session, or nil.
	Get(sessionKey string) *domain.Credential

	// Delete discards the credential for the session.
	Delete(sessionKey string)
}

// PendingAuthRepository manages single-use login nonces.
type PendingAuthRepository interface {
	// Create registers a new pending authorization.
	Create(auth *domain.PendingAuthorization)

	// Consume atomically removes and returns the pending authorization
	// for the given state, or nil if it is unknown, already consumed,
	// or expired.
	Consume(state string) *domain.PendingAuthorization
}

// StoreRepository is the store directory.
type StoreRepository interface {
	// Upsert inserts or updates a record keyed by external store id
	// and returns the stored copy. Idempotent for identical input.
	Upsert(store domain.StoreRecord) domain.StoreRecord

	// Get returns a copy of the record, or nil when absent.
	Get(externalStoreID string) *domain.StoreRecord

	// ListBySession returns copies of all records owned by the session.
	ListBySession(sessionKey string) []domain.StoreRecord
}

// ActivationRepository holds the canonical per-store activation status.
// The activation service is its only writer.
type ActivationRepository interface {
	Get(externalStoreID string) domain.ActivationStatus
	Set(externalStoreID string, status domain.ActivationStatus)
}

// EventLog is the bounded, ordered webhook event log.
type EventLog interface {
	// Append records an event, evicting the oldest entry once the
	// fixed capacity is reached.
	Append(event domain.WebhookEvent)

	// Recent returns a snapshot of the retained events,
	// most-recent-first.
	Recent() []domain.WebhookEvent

	// Len returns the number of retained events.
	Len() int
}

// Publisher pushes notifications to real-time observers without
// blocking the caller.
type Publisher interface {
	Publish(n domain.Notification)
}
