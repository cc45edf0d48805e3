// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the noticeboard configuration from NB_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains example secrets that must never be used.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
	"keyboard cat keyboard cat keyboard",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"NB_DB_PATH" envDefault:"./data/noticeboard.db"`
	SessionDBPath string `env:"NB_SESSION_DB_PATH" envDefault:"./data/sessions.db"`
	SessionSecret string `env:"NB_SESSION_SECRET,required"`
	ServerHost    string `env:"NB_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"NB_SERVER_PORT" envDefault:"3000"`
	Env           string `env:"NB_ENV" envDefault:"development"`
	LogLevel      string `env:"NB_LOG_LEVEL" envDefault:"info"`
	UploadsDir    string `env:"NB_UPLOADS_DIR" envDefault:"./uploads"`

	// Bootstrap admin, created only when the users table is empty
	AdminUsername string `env:"NB_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"NB_ADMIN_PASSWORD" envDefault:"admin123"`

	SessionLifetime    time.Duration `env:"NB_SESSION_LIFETIME" envDefault:"8h"`
	EventRetentionDays int           `env:"NB_EVENT_RETENTION_DAYS" envDefault:"90"`

	// EventCleanupSchedule is the cron expression for event pruning
	EventCleanupSchedule string `env:"NB_EVENT_CLEANUP_SCHEDULE" envDefault:"0 3 * * *"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EventRetention returns how long event log rows are kept.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// MinSessionSecretLength is the minimum required length for the session secret.
// The secret keys CSRF tokens, which need 32 bytes.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("NB_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("NB_SESSION_SECRET is a known example value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if cfg.SessionLifetime <= 0 {
		return nil, fmt.Errorf("NB_SESSION_LIFETIME must be positive, got %s", cfg.SessionLifetime)
	}
	if cfg.EventRetentionDays < 1 {
		return nil, fmt.Errorf("NB_EVENT_RETENTION_DAYS must be at least 1, got %d", cfg.EventRetentionDays)
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("NB_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret mixes at least 3 character classes.
func hasMinimumEntropy(s string) bool {
	classes := 0
	for _, set := range []string{
		"abcdefghijklmnopqrstuvwxyz",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"0123456789",
		"!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\ ",
	} {
		if strings.ContainsAny(s, set) {
			classes++
		}
	}
	return classes >= 3
}
