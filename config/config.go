package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - api.go: Backend API client configuration
//   - session.go: Session store and refresh-signal configuration
//   - viewer.go: Structure viewer configuration
//   - observability.go: Metrics configuration
type AppConfig struct {
	// API client configuration
	API APIConfig

	// Session store configuration
	Session SessionConfig

	// Refresh-signal transport configuration
	Signal SignalConfig `envPrefix:"SIGNAL_"`

	// Structure viewer configuration
	Viewer ViewerConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.API.Sanitize()
	c.Session.Sanitize()
	c.Signal.Sanitize()
	c.Viewer.Sanitize()
	c.Observability.Sanitize()
}
