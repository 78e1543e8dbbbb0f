package ports

import (
	"context"
)

// TokenResponse is the upstream token endpoint's reply, shared by the
// authorization-code exchange and the refresh grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UpstreamStore is one entry of the platform's store directory.
type UpstreamStore struct {
	StoreID string
	Name    string
	Address string
}

// StorePage is one page of the directory listing.
type StorePage struct {
	Stores        []UpstreamStore
	NextPageToken string
}

// ActivationRequest is the provisioning payload sent per store.
type ActivationRequest struct {
	MerchantStoreID   string
	IntegratorStoreID string
}

// SignatureVerifier validates inbound webhook signatures against the
// exact raw request bytes.
type SignatureVerifier interface {
	Verify(payload []byte, signatureHeader string) error
}

// DeliveryClient talks to the delivery platform's API.
type DeliveryClient interface {
	// AuthorizeURL builds the consent redirect embedding the state nonce.
	AuthorizeURL(state string) string

	// ExchangeCode trades an authorization code for tokens.
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)

	// Refresh trades a refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// ListStores fetches one page of the merchant's store directory.
	ListStores(ctx context.Context, accessToken, pageToken string, pageSize int) (*StorePage, error)

	// ActivateStore requests provisioning of this application as the
	// store's point-of-sale integration. A nil error means the request
	// was accepted, not that the store is live.
	ActivateStore(ctx context.Context, accessToken string, req ActivationRequest) error
}
