package config

import "strings"

// SessionConfig contains session store configuration.
type SessionConfig struct {
	// SnapshotPath is where the persisted identity snapshot lives. Empty
	// disables persistence; the store then always starts logged out.
	SnapshotPath string `env:"SESSION_SNAPSHOT_PATH" envDefault:""`
}

// Sanitize normalizes session configuration values.
func (s *SessionConfig) Sanitize() {
	s.SnapshotPath = strings.TrimSpace(s.SnapshotPath)
}

// SignalConfig contains configuration for the cross-process refresh signal.
// When Redis is enabled, sign-out in one client process is observed by the
// others through a pub/sub channel keyed to the snapshot.
type SignalConfig struct {
	// UseRedis enables the Redis-backed change notifier.
	UseRedis bool `env:"USE_REDIS" envDefault:"false"`

	// RedisAddr is the Redis host:port for the signal channel.
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	// RedisPassword authenticates the signal connection.
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`

	// RedisDB selects the Redis logical database.
	RedisDB int `env:"REDIS_DB" envDefault:"0"`

	// Channel is the pub/sub channel name for session-change signals.
	Channel string `env:"CHANNEL" envDefault:"chemcat:session"`
}

// Sanitize applies guardrails to signal configuration values.
func (s *SignalConfig) Sanitize() {
	s.RedisAddr = strings.TrimSpace(s.RedisAddr)
	s.Channel = strings.TrimSpace(s.Channel)
	if s.Channel == "" {
		s.Channel = "chemcat:session"
	}
	if s.RedisAddr == "" {
		s.UseRedis = false
	}
}
