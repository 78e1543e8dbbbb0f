package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	Env  string
	Port string

	AppURL string

	ClientID      string
	ClientSecret  string
	RedirectURI   string
	AuthBaseURL   string
	APIBaseURL    string
	BrandID       string
	WebhookSecret string

	UpstreamTimeout time.Duration
}

// Load reads the environment, letting a local .env file supply
// defaults. Missing required values are reported by the caller.
func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:             env("APP_ENV", "dev"),
		Port:            env("PORT", "8080"),
		AppURL:          env("APP_URL", "http://localhost:8080"),
		ClientID:        env("CLIENT_ID", ""),
		ClientSecret:    env("CLIENT_SECRET", ""),
		RedirectURI:     env("REDIRECT_URI", ""),
		AuthBaseURL:     env("AUTH_BASE_URL", "https://auth.uber.com"),
		APIBaseURL:      env("API_BASE_URL", "https://api.uber.com"),
		BrandID:         env("INTEGRATOR_BRAND_ID", ""),
		WebhookSecret:   env("WEBHOOK_SECRET", ""),
		UpstreamTimeout: envDur("UPSTREAM_TIMEOUT_SEC", 10) * time.Second,
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = cfg.AppURL + "/oauth/callback"
	}
	if cfg.WebhookSecret == "" {
		// The platform signs webhooks with the client secret unless a
		// dedicated secret is configured.
		cfg.WebhookSecret = cfg.ClientSecret
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i)
		}
	}
	return time.Duration(def)
}
