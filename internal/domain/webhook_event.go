package domain

import (
	"encoding/json"
	"time"
)

// Webhook event types delivered by the platform.
const (
	EventStoreProvisioned   = "store.provisioned"
	EventStoreDeprovisioned = "store.deprovisioned"
)

// WebhookEvent is one verified event as received, raw payload kept
// alongside the parsed fields.
type WebhookEvent struct {
	ID              string          `json:"id"`
	ReceivedAt      time.Time       `json:"received_at"`
	EventType       string          `json:"event_type"`
	ExternalStoreID string          `json:"external_store_id,omitempty"`
	RawPayload      json.RawMessage `json:"raw_payload"`
}

// Notification types pushed to real-time observers.
const (
	NotificationStatusChanged = "status_changed"
	NotificationEventLogged   = "event_logged"
)

// Notification is the unit of fanout to subscribed observers.
type Notification struct {
	Type            string           `json:"type"`
	ExternalStoreID string           `json:"external_store_id,omitempty"`
	Status          ActivationStatus `json:"status,omitempty"`
	Event           *WebhookEvent    `json:"event,omitempty"`
}
