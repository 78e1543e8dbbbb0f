package uber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(authURL, apiURL string) Config {
	return Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/oauth/callback",
		AuthBaseURL:  authURL,
		APIBaseURL:   apiURL,
		BrandID:      "brand-42",
		Timeout:      2 * time.Second,
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(testConfig("https://auth.example.com", ""), zerolog.Nop())

	raw := c.AuthorizeURL("state-xyz")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "/oauth/v2/authorize", parsed.Path)
	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "https://app.example.com/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "eats.pos_provisioning", q.Get("scope"))
	assert.Equal(t, "state-xyz", q.Get("state"))
}

func TestExchangeCodeSendsFormGrant(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth/v2/token", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		got = r.PostForm

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, ""), zerolog.Nop())
	token, err := c.ExchangeCode(context.Background(), "auth-code-1")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", got.Get("grant_type"))
	assert.Equal(t, "auth-code-1", got.Get("code"))
	assert.Equal(t, "client-id", got.Get("client_id"))
	assert.Equal(t, "client-secret", got.Get("client_secret"))
	assert.Equal(t, "https://app.example.com/oauth/callback", got.Get("redirect_uri"))

	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken)
	assert.EqualValues(t, 3600, token.ExpiresIn)
}

func TestRefreshSendsRefreshGrant(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-2",
			"expires_in":   1800,
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, ""), zerolog.Nop())
	token, err := c.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", got.Get("grant_type"))
	assert.Equal(t, "refresh-1", got.Get("refresh_token"))
	assert.Empty(t, got.Get("code"))

	assert.Equal(t, "access-2", token.AccessToken)
	assert.Empty(t, token.RefreshToken, "upstream may omit a rotated refresh token")
}

func TestTokenEndpointRejection(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   domain.ErrorKind
	}{
		{"bad request", http.StatusBadRequest, domain.ErrUpstreamRejected},
		{"bad credentials", http.StatusUnauthorized, domain.ErrUpstreamRejected},
		{"consent denied", http.StatusForbidden, domain.ErrUpstreamRejected},
		{"rate limited", http.StatusTooManyRequests, domain.ErrUpstreamRejected},
		{"server error", http.StatusInternalServerError, domain.ErrUpstreamError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(map[string]string{
					"error":             "denied",
					"error_description": "nope",
				})
			}))
			defer srv.Close()

			c := NewClient(testConfig(srv.URL, ""), zerolog.Nop())
			_, err := c.ExchangeCode(context.Background(), "code")
			require.Error(t, err)
			assert.Equal(t, tc.kind, domain.KindOf(err))
		})
	}
}

func TestExchangeCodeMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, ""), zerolog.Nop())
	_, err := c.ExchangeCode(context.Background(), "code")
	require.Error(t, err)
	assert.Equal(t, domain.ErrUpstreamError, domain.KindOf(err))
}

func TestListStoresParsesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/delivery/stores", r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		require.Equal(t, "25", r.URL.Query().Get("page_size"))
		require.Equal(t, "cursor-1", r.URL.Query().Get("page_token"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"store_id": "s-1",
					"name":     "Corner Cafe",
					"location": map[string]string{"address": "1 Main St"},
				},
				{
					"store_id": "s-2",
					"name":     "Cafe Uptown",
					"location": map[string]string{"address": "9 High St"},
				},
			},
			"next_page_token": "cursor-2",
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig("", srv.URL), zerolog.Nop())
	page, err := c.ListStores(context.Background(), "access-1", "cursor-1", 25)
	require.NoError(t, err)

	assert.Equal(t, "cursor-2", page.NextPageToken)
	require.Len(t, page.Stores, 2)
	assert.Equal(t, ports.UpstreamStore{StoreID: "s-1", Name: "Corner Cafe", Address: "1 Main St"}, page.Stores[0])
	assert.Equal(t, "9 High St", page.Stores[1].Address)
}

func TestListStoresRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	c := NewClientWithOptions(testConfig("", srv.URL), fastRetry(), zerolog.Nop())
	page, err := c.ListStores(context.Background(), "access-1", "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Stores)
	assert.EqualValues(t, 3, calls.Load())
}

func TestListStoresDoesNotRetryUnauthorized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClientWithOptions(testConfig("", srv.URL), fastRetry(), zerolog.Nop())
	_, err := c.ListStores(context.Background(), "stale", "", 0)
	require.Error(t, err)
	assert.Equal(t, domain.ErrUnauthorized, domain.KindOf(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestListStoresGivesUpAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClientWithOptions(testConfig("", srv.URL), fastRetry(), zerolog.Nop())
	_, err := c.ListStores(context.Background(), "access-1", "", 0)
	require.Error(t, err)
	assert.Equal(t, domain.ErrUpstreamError, domain.KindOf(err))
	assert.EqualValues(t, 3, calls.Load(), "initial call plus two retries")
}

func TestActivateStoreSendsProvisioningBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/eats/stores/store-1/pos_data", r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(testConfig("", srv.URL), zerolog.Nop())
	err := c.ActivateStore(context.Background(), "access-1", ports.ActivationRequest{
		MerchantStoreID:   "store-1",
		IntegratorStoreID: "Corner_Cafe_stor",
	})
	require.NoError(t, err)

	assert.Equal(t, "brand-42", got["integrator_brand_id"])
	assert.Equal(t, "Corner_Cafe_stor", got["integrator_store_id"])
	assert.Equal(t, "store-1", got["merchant_store_id"])
	assert.Equal(t, true, got["is_order_manager"])
	assert.Equal(t, false, got["require_manual_acceptance"])

	webhooks, ok := got["webhooks_config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", webhooks["webhooks_version"])
	release, ok := webhooks["order_release_webhooks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, release["is_enabled"])
}

func TestActivateStoreErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   domain.ErrorKind
	}{
		{"bad payload", http.StatusBadRequest, domain.ErrBadRequest},
		{"stale token", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, domain.ErrUnauthorized},
		{"unknown store", http.StatusNotFound, domain.ErrNotFound},
		{"upstream down", http.StatusBadGateway, domain.ErrUpstreamError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(map[string]string{
					"code":    "failure",
					"message": "details",
				})
			}))
			defer srv.Close()

			c := NewClient(testConfig("", srv.URL), zerolog.Nop())
			err := c.ActivateStore(context.Background(), "access-1", ports.ActivationRequest{
				MerchantStoreID:   "store-1",
				IntegratorStoreID: "label",
			})
			require.Error(t, err)
			assert.Equal(t, tc.kind, domain.KindOf(err))
		})
	}
}
