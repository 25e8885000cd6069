package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Server configuration defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.log_theme", "everforest")

	// Database defaults
	v.SetDefault("database.path", "kirosync.db")

	// Auth defaults — disabled by default for local/dev use, matching
	// spec.md's username/password model without forcing every dev run
	// through token issuance.
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_expiry", "15m")
	v.SetDefault("auth.refresh_expiry", "720h")

	// Mediator tuning defaults
	v.SetDefault("mediator.echo_ttl", "5s")
	v.SetDefault("mediator.change_tracker_ttl", "10s")
	v.SetDefault("mediator.duplicate_window", "50ms")
	v.SetDefault("mediator.debounce_interval", "100ms")
	v.SetDefault("mediator.sweep_interval", "5s")

	// Session coordinator defaults
	v.SetDefault("session.inactive_after", "24h")

	// Presence cache defaults
	v.SetDefault("presence.ttl", "1h")
	v.SetDefault("presence.sweep_interval", "5m")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to
// environment variables.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "KIROSYNC_DATABASE_PATH")
	v.BindEnv("auth.jwt_secret", "KIROSYNC_AUTH_JWT_SECRET")
}

// GetServerPort returns the configured server port, or DefaultServerPort if
// the config could not be loaded.
func GetServerPort() int {
	cfg, err := Load()
	if err != nil {
		return DefaultServerPort
	}
	if cfg.Server.Port == 0 {
		return DefaultServerPort
	}
	return cfg.Server.Port
}

// GetServerConfig returns the loaded server configuration.
func GetServerConfig() (*ServerConfig, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	return &cfg.Server, nil
}
