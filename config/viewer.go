package config

import (
	"strings"
	"time"
)

// ViewerConfig contains structure viewer configuration.
type ViewerConfig struct {
	// FetchTimeout bounds structure-file downloads. Structure files may be
	// served from a slower content origin than the API, so this is separate
	// from the API timeout.
	FetchTimeout time.Duration `env:"VIEWER_FETCH_TIMEOUT" envDefault:"30s"`

	// EngineSource is where the viewer engine is loaded from on first use.
	EngineSource string `env:"VIEWER_ENGINE_SOURCE" envDefault:""`
}

// Sanitize applies guardrails to viewer configuration values.
func (v *ViewerConfig) Sanitize() {
	if v.FetchTimeout <= 0 {
		v.FetchTimeout = 30 * time.Second
	}
	v.EngineSource = strings.TrimSpace(v.EngineSource)
}
