package config

import (
	"strings"
	"time"
)

// APIConfig contains backend API client configuration.
type APIConfig struct {
	// BaseURL is the base URL of the catalog backend (e.g., "https://api.example.com").
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds every API request, including identity reconciliation.
	// The backend itself has no timeout contract, so the client enforces one
	// to avoid indefinitely stuck loading states.
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`

	// UserAgent is sent with every request.
	UserAgent string `env:"API_USER_AGENT" envDefault:"chemcat-cli"`
}

// Sanitize applies guardrails to API configuration values.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}
	if strings.TrimSpace(a.UserAgent) == "" {
		a.UserAgent = "chemcat-cli"
	}
}
