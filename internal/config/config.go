package config

import "fmt"

// Config is the root KiroSync configuration, loaded by Load via layered
// TOML files and environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mediator MediatorConfig `mapstructure:"mediator"`
	Session  SessionConfig  `mapstructure:"session"`
	Presence PresenceConfig `mapstructure:"presence"`
}

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogTheme       string   `mapstructure:"log_theme"` // Color theme: gruvbox, everforest
}

// Server port constants.
const (
	DefaultServerPort = 8877
	FallbackPort      = 7878
)

// DatabaseConfig configures the SQLite-backed persistence layer.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig configures JWT-based authentication for remote clients.
type AuthConfig struct {
	Enabled       bool   `mapstructure:"enabled"`        // Require a verified JWT on authenticate (default: false for local/dev use)
	JWTSecret     string `mapstructure:"jwt_secret"`     // Secret for signing JWTs (auto-generated if empty)
	TokenExpiry   string `mapstructure:"token_expiry"`   // Access token expiry duration (default: 15m)
	RefreshExpiry string `mapstructure:"refresh_expiry"` // Refresh token expiry duration (default: 720h)
}

// MediatorConfig tunes the reentrancy-safe event mediator's echo
// suppression and debounce windows.
type MediatorConfig struct {
	EchoTTL          string `mapstructure:"echo_ttl"`          // default: 5s
	ChangeTrackerTTL string `mapstructure:"change_tracker_ttl"` // default: 10s
	DuplicateWindow  string `mapstructure:"duplicate_window"`  // default: 50ms
	DebounceInterval string `mapstructure:"debounce_interval"` // default: 100ms
	SweepInterval    string `mapstructure:"sweep_interval"`    // default: 5s
}

// SessionConfig tunes the session coordinator's inactive-participant purge.
type SessionConfig struct {
	InactiveAfter string `mapstructure:"inactive_after"` // default: 24h
}

// PresenceConfig tunes the user/socket presence cache.
type PresenceConfig struct {
	TTL           string `mapstructure:"ttl"`            // default: 1h
	SweepInterval string `mapstructure:"sweep_interval"` // default: 5m
}

// File system constants.
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// GetDatabasePath returns the configured database path, falling back to a
// sensible default for local development.
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "kirosync.db"
	}
	return c.Database.Path
}

// GetServerAllowedOrigins merges configured CORS origins with the secure
// defaults, ensuring localhost/127.0.0.1 are always permitted even when a
// project config overrides the list.
func (c *Config) GetServerAllowedOrigins() []string {
	defaults := []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return defaults
	}

	originSet := make(map[string]bool)
	for _, origin := range defaults {
		originSet[origin] = true
	}
	for _, origin := range c.Server.AllowedOrigins {
		originSet[origin] = true
	}

	merged := make([]string, 0, len(originSet))
	for origin := range originSet {
		merged = append(merged, origin)
	}
	return merged
}

// GetServerLogTheme returns the configured log theme, defaulting to
// everforest.
func (c *Config) GetServerLogTheme() string {
	if c.Server.LogTheme == "" {
		return "everforest"
	}
	return c.Server.LogTheme
}

// String returns a short human-readable summary of the loaded config.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server.Port: %d, Database.Path: %s}", c.Server.Port, c.GetDatabasePath())
}
