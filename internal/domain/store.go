package domain

import "strings"

// StoreRecord maps a store on the delivery platform to the label this
// application registers as the merchant's own identifier.
type StoreRecord struct {
	ExternalStoreID string `json:"external_store_id"`
	InternalLabel   string `json:"internal_label"`
	OwnerSessionKey string `json:"owner_session_key"`
	DisplayName     string `json:"display_name"`
	Address         string `json:"address"`
}

// DeriveInternalLabel builds the merchant-side store identifier from
// the display name and a stable suffix of the platform id. The
// derivation is deterministic so repeated directory fetches produce
// the same label for the same store.
func DeriveInternalLabel(displayName, externalStoreID string) string {
	name := strings.Join(strings.Fields(displayName), "_")
	suffix := externalStoreID
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return name + "_" + suffix
}

// ActivationStatus is the canonical per-store activation state.
type ActivationStatus int

const (
	StatusUnknown ActivationStatus = iota
	StatusPending
	StatusRequesting
	StatusAwaitingConfirmation
	StatusActivated
	StatusDeactivated
)

func (s ActivationStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRequesting:
		return "requesting"
	case StatusAwaitingConfirmation:
		return "awaiting_confirmation"
	case StatusActivated:
		return "activated"
	case StatusDeactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

func (s ActivationStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
