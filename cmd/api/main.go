package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"eats-pos-link/internal/application"
	"eats-pos-link/internal/config"
	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/infrastructure/memstore"
	"eats-pos-link/internal/infrastructure/metrics"
	"eats-pos-link/internal/infrastructure/pubsub"
	uberinfra "eats-pos-link/internal/infrastructure/uber"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const sessionCookieName = "pos_link_session"

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Fatal().Msg("CLIENT_ID and CLIENT_SECRET environment variables are required")
	}
	if cfg.BrandID == "" {
		logger.Warn().Msg("INTEGRATOR_BRAND_ID not set, activation requests will be rejected upstream")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Upstream client
	uberClient := uberinfra.NewClientWithOptions(uberinfra.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		AuthBaseURL:  cfg.AuthBaseURL,
		APIBaseURL:   cfg.APIBaseURL,
		BrandID:      cfg.BrandID,
		Timeout:      cfg.UpstreamTimeout,
	}, uberinfra.DefaultRetryConfig(), logger)

	// Process-lifetime state
	credStore := memstore.NewCredentialStore()
	pendingStore := memstore.NewPendingAuthStore()
	directory := memstore.NewStoreDirectory()
	activationStore := memstore.NewActivationStore()
	eventLog := memstore.NewEventLog(memstore.DefaultEventLogCapacity)

	// Fanout to real-time observers
	notifications := pubsub.NewNotificationPubSub(logger)

	// Application services
	authService := application.NewAuthService(credStore, pendingStore, uberClient, m, logger)
	activationService := application.NewActivationService(
		directory, activationStore, authService, uberClient, notifications, m, logger)
	storeService := application.NewStoreService(directory, activationService, authService, uberClient, logger)
	webhookService := application.NewWebhookService(
		uberinfra.NewWebhookVerifier(cfg.WebhookSecret),
		eventLog, activationService, notifications, m, logger)

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// OAuth routes
	r.Get("/oauth/login", loginHandler(authService, logger))
	r.Get("/oauth/callback", callbackHandler(authService, logger))

	// Merchant API
	r.Get("/api/stores", storesHandler(storeService, activationService, logger))
	r.Post("/api/stores/{id}/activate", activateHandler(activationService, logger))
	r.Get("/api/stores/{id}/status", statusHandler(activationService))
	r.Get("/api/events", eventsHandler(webhookService))
	r.Get("/api/events/stream", streamHandler(notifications, m, logger))

	// Webhook endpoint for platform events
	r.Post("/webhooks/store-provisioned", webhookHandler(webhookService, logger))

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// sessionKey returns the caller's session key, minting one into a
// cookie when absent.
func sessionKey(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

// loginHandler starts the OAuth flow and redirects to the platform's
// consent page.
func loginHandler(authService *application.AuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := sessionKey(w, r)

		redirectURL, _, err := authService.BeginLogin(key)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to begin login")
			writeError(w, err)
			return
		}

		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// callbackHandler completes the OAuth flow.
func callbackHandler(authService *application.AuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		if code == "" {
			writeError(w, domain.NewError(domain.ErrBadRequest,
				"authorization code is missing",
				"the merchant may not have granted consent; restart the login flow"))
			return
		}
		if state == "" {
			writeError(w, domain.NewError(domain.ErrInvalidState,
				"state parameter is missing",
				"restart the login flow"))
			return
		}

		cred, err := authService.CompleteLogin(r.Context(), code, state)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to complete login")
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "authenticated",
			"session_key": cred.SessionKey,
			"expires_at":  cred.ExpiresAt(),
		})
	}
}

// storesHandler syncs a directory page from the platform and returns
// the session's stores with their activation status.
func storesHandler(
	storeService *application.StoreService,
	activationService *application.ActivationService,
	logger zerolog.Logger,
) http.HandlerFunc {
	type storeView struct {
		domain.StoreRecord
		Status domain.ActivationStatus `json:"status"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := sessionKey(w, r)

		pageToken := r.URL.Query().Get("page_token")
		pageSize := 0
		if v := r.URL.Query().Get("page_size"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				pageSize = n
			}
		}

		_, nextToken, err := storeService.SyncStores(r.Context(), key, pageToken, pageSize)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to sync stores")
			writeError(w, err)
			return
		}

		stores := storeService.ListStores(key)
		views := make([]storeView, 0, len(stores))
		for _, store := range stores {
			views = append(views, storeView{
				StoreRecord: store,
				Status:      activationService.Status(store.ExternalStoreID),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"stores":          views,
			"next_page_token": nextToken,
		})
	}
}

// activateHandler requests activation of one store.
func activateHandler(activationService *application.ActivationService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := chi.URLParam(r, "id")

		status, err := activationService.RequestActivation(r.Context(), storeID)
		if err != nil {
			logger.Error().Err(err).Str("storeId", storeID).Msg("Activation request failed")
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"store_id": storeID,
			"status":   status,
		})
	}
}

// statusHandler reads one store's activation status.
func statusHandler(activationService *application.ActivationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := chi.URLParam(r, "id")
		writeJSON(w, http.StatusOK, map[string]any{
			"store_id": storeID,
			"status":   activationService.Status(storeID),
		})
	}
}

// eventsHandler returns the retained webhook event log.
func eventsHandler(webhookService *application.WebhookService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"events": webhookService.RecentEvents(),
		})
	}
}

// streamHandler serves the real-time notification feed as
// server-sent events.
func streamHandler(notifications *pubsub.NotificationPubSub, m *metrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		channel := notifications.Subscribe(r.Context())
		m.Subscribers.Inc()
		defer m.Subscribers.Dec()

		for {
			select {
			case n, open := <-channel.Notifications:
				if !open {
					return
				}
				payload, err := json.Marshal(n)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to encode notification")
					continue
				}
				if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}

// webhookHandler ingests platform webhook deliveries. The raw body is
// passed through untouched so signature verification sees the exact
// bytes the platform signed.
func webhookHandler(webhookService *application.WebhookService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read webhook payload")
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		signature := r.Header.Get("X-Uber-Signature")
		if err := webhookService.Ingest(payload, signature); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
	}
}

// writeError maps a classified error to an HTTP status and a JSON body
// carrying the machine-readable kind plus the suggested next action.
func writeError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal", "message": err.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.ErrBadRequest:
		status = http.StatusBadRequest
	case domain.ErrInvalidState, domain.ErrUnauthorized,
		domain.ErrReauthRequired, domain.ErrSignatureInvalid:
		status = http.StatusUnauthorized
	case domain.ErrUnknownStore, domain.ErrNotFound:
		status = http.StatusNotFound
	case domain.ErrUpstreamRejected, domain.ErrUpstreamError:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{
		"error":   string(de.Kind),
		"message": de.Message,
		"advice":  de.Advice,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
