package uber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"

	"github.com/rs/zerolog"
)

// Scope requested during the OAuth consent flow.
const provisioningScope = "eats.pos_provisioning"

// Config carries the upstream endpoints and application identity.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthBaseURL  string // e.g. https://auth.uber.com
	APIBaseURL   string // e.g. https://api.uber.com
	BrandID      string // integrator brand identifier sent on activation
	Timeout      time.Duration
}

type client struct {
	cfg         Config
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      zerolog.Logger
}

// NewClient creates a delivery platform client adapter.
func NewClient(cfg Config, logger zerolog.Logger) ports.DeliveryClient {
	return NewClientWithOptions(cfg, DefaultRetryConfig(), logger)
}

// NewClientWithOptions creates a client with explicit retry options.
func NewClientWithOptions(cfg Config, retryConfig RetryConfig, logger zerolog.Logger) ports.DeliveryClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retryConfig,
		logger:      logger,
	}
}

func (c *client) AuthorizeURL(state string) string {
	return fmt.Sprintf(
		"%s/oauth/v2/authorize?client_id=%s&response_type=code&redirect_uri=%s&scope=%s&state=%s",
		c.cfg.AuthBaseURL,
		url.QueryEscape(c.cfg.ClientID),
		url.QueryEscape(c.cfg.RedirectURI),
		url.QueryEscape(provisioningScope),
		url.QueryEscape(state),
	)
}

func (c *client) ExchangeCode(ctx context.Context, code string) (*ports.TokenResponse, error) {
	values := url.Values{}
	values.Set("client_id", c.cfg.ClientID)
	values.Set("client_secret", c.cfg.ClientSecret)
	values.Set("grant_type", "authorization_code")
	values.Set("redirect_uri", c.cfg.RedirectURI)
	values.Set("code", code)

	token, err := c.postToken(ctx, values)
	if err != nil {
		c.logger.Error().Err(err).Msg("Authorization code exchange failed")
		return nil, err
	}
	return token, nil
}

func (c *client) Refresh(ctx context.Context, refreshToken string) (*ports.TokenResponse, error) {
	values := url.Values{}
	values.Set("client_id", c.cfg.ClientID)
	values.Set("client_secret", c.cfg.ClientSecret)
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", refreshToken)

	token, err := c.postToken(ctx, values)
	if err != nil {
		c.logger.Error().Err(err).Msg("Token refresh failed")
		return nil, err
	}
	return token, nil
}

// postToken performs a form-urlencoded call against the token endpoint.
// The upstream uses the same endpoint and response shape for both
// grant types.
func (c *client) postToken(ctx context.Context, values url.Values) (*ports.TokenResponse, error) {
	tokenURL := c.cfg.AuthBaseURL + "/oauth/v2/token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstreamError,
			"token endpoint unreachable", "retry later", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, tokenError(resp)
	}

	var token ports.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, domain.NewError(domain.ErrUpstreamError,
			"token response missing access_token", "retry later")
	}
	return &token, nil
}

// tokenError maps a non-2xx token endpoint reply to a classified error
// with the next action the merchant flow should take.
func tokenError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var upstream struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &upstream)
	detail := upstream.Description
	if detail == "" {
		detail = upstream.Error
	}
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return domain.NewError(domain.ErrUpstreamRejected,
			fmt.Sprintf("invalid token request: %s", detail),
			"verify code, redirect_uri and client_id, then restart login")
	case http.StatusUnauthorized:
		return domain.NewError(domain.ErrUpstreamRejected,
			fmt.Sprintf("client credentials rejected: %s", detail),
			"verify client id and secret configuration")
	case http.StatusForbidden:
		return domain.NewError(domain.ErrUpstreamRejected,
			fmt.Sprintf("consent denied: %s", detail),
			"ask the merchant to re-authorize the application")
	case http.StatusTooManyRequests:
		return domain.NewError(domain.ErrUpstreamRejected,
			"token endpoint rate limited",
			"retry after cooldown; reuse cached tokens until expiry")
	default:
		return domain.NewError(domain.ErrUpstreamError,
			fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, detail),
			"retry later")
	}
}

func (c *client) ListStores(ctx context.Context, accessToken, pageToken string, pageSize int) (*ports.StorePage, error) {
	if pageSize <= 0 {
		pageSize = 50
	}

	listURL := c.cfg.APIBaseURL + "/v1/delivery/stores"
	query := url.Values{}
	query.Set("page_size", strconv.Itoa(pageSize))
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}
	listURL += "?" + query.Encode()

	var page *ports.StorePage
	err := c.withRetry(ctx, "list stores", func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to create stores request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, domain.WrapError(domain.ErrUpstreamError,
				"store directory unreachable", "retry later", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, apiError(resp, "store directory")
		}

		var payload struct {
			Data []struct {
				StoreID  string `json:"store_id"`
				Name     string `json:"name"`
				Location struct {
					Address string `json:"address"`
				} `json:"location"`
			} `json:"data"`
			NextPageToken string `json:"next_page_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode store list: %w", err)
		}

		page = &ports.StorePage{NextPageToken: payload.NextPageToken}
		for _, s := range payload.Data {
			page.Stores = append(page.Stores, ports.UpstreamStore{
				StoreID: s.StoreID,
				Name:    s.Name,
				Address: s.Location.Address,
			})
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// activationPayload mirrors the provisioning body the platform expects.
type activationPayload struct {
	AllowedCustomerRequests struct {
		AllowSingleUseItems        bool `json:"allow_single_use_items_requests"`
		AllowSpecialInstructions   bool `json:"allow_special_instruction_requests"`
	} `json:"allowed_customer_requests"`
	IntegratorBrandID       string `json:"integrator_brand_id"`
	IntegratorStoreID       string `json:"integrator_store_id"`
	IsOrderManager          bool   `json:"is_order_manager"`
	MerchantStoreID         string `json:"merchant_store_id"`
	RequireManualAcceptance bool   `json:"require_manual_acceptance"`
	WebhooksConfig          struct {
		OrderRelease    webhookFlag `json:"order_release_webhooks"`
		ScheduleOrder   webhookFlag `json:"schedule_order_webhooks"`
		DeliveryStatus  webhookFlag `json:"delivery_status_webhooks"`
		WebhooksVersion string      `json:"webhooks_version"`
	} `json:"webhooks_config"`
}

type webhookFlag struct {
	IsEnabled bool `json:"is_enabled"`
}

func (c *client) ActivateStore(ctx context.Context, accessToken string, req ports.ActivationRequest) error {
	payload := activationPayload{
		IntegratorBrandID:       c.cfg.BrandID,
		IntegratorStoreID:       req.IntegratorStoreID,
		IsOrderManager:          true,
		MerchantStoreID:         req.MerchantStoreID,
		RequireManualAcceptance: false,
	}
	payload.WebhooksConfig.OrderRelease.IsEnabled = true
	payload.WebhooksConfig.ScheduleOrder.IsEnabled = true
	payload.WebhooksConfig.DeliveryStatus.IsEnabled = true
	payload.WebhooksConfig.WebhooksVersion = "1.0.0"

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode activation payload: %w", err)
	}

	activateURL := fmt.Sprintf("%s/v1/eats/stores/%s/pos_data",
		c.cfg.APIBaseURL, url.PathEscape(req.MerchantStoreID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, activateURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create activation request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.WrapError(domain.ErrUpstreamError,
			"activation endpoint unreachable", "retry later", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp, "activation")
	}

	c.logger.Info().
		Str("storeId", req.MerchantStoreID).
		Str("integratorStoreId", req.IntegratorStoreID).
		Msg("Activation request accepted upstream")
	return nil
}

// apiError maps an API error reply to a classified error. The upstream
// error body is {code, message} when present.
func apiError(resp *http.Response, operation string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var upstream struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &upstream)
	detail := upstream.Message
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return domain.NewError(domain.ErrBadRequest,
			fmt.Sprintf("%s rejected the request: %s", operation, detail),
			"verify the request payload and store id")
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewError(domain.ErrUnauthorized,
			fmt.Sprintf("%s rejected the token: %s", operation, detail),
			"re-authenticate with the platform")
	case http.StatusNotFound:
		return domain.NewError(domain.ErrNotFound,
			fmt.Sprintf("%s target not found: %s", operation, detail),
			"verify the store id and refetch the directory")
	default:
		return domain.NewError(domain.ErrUpstreamError,
			fmt.Sprintf("%s failed with status %d: %s", operation, resp.StatusCode, detail),
			"retry later")
	}
}
