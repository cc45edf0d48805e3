// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "NB_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"DBPath", cfg.DBPath, "./data/noticeboard.db"},
		{"SessionDBPath", cfg.SessionDBPath, "./data/sessions.db"},
		{"ServerHost", cfg.ServerHost, "localhost"},
		{"ServerPort", cfg.ServerPort, 3000},
		{"Env", cfg.Env, "development"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"UploadsDir", cfg.UploadsDir, "./uploads"},
		{"AdminUsername", cfg.AdminUsername, "admin"},
		{"AdminPassword", cfg.AdminPassword, "admin123"},
		{"SessionLifetime", cfg.SessionLifetime, 8 * time.Hour},
		{"EventRetentionDays", cfg.EventRetentionDays, 90},
		{"EventCleanupSchedule", cfg.EventCleanupSchedule, "0 3 * * *"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v; want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "NB_SESSION_SECRET", "custom-secret-key-32-bytes-long!")
	setEnv(t, "NB_DB_PATH", "/srv/nb/board.db")
	setEnv(t, "NB_SESSION_DB_PATH", "/srv/nb/sessions.db")
	setEnv(t, "NB_SERVER_HOST", "0.0.0.0")
	setEnv(t, "NB_SERVER_PORT", "8080")
	setEnv(t, "NB_ENV", "production")
	setEnv(t, "NB_LOG_LEVEL", "debug")
	setEnv(t, "NB_ADMIN_USERNAME", "principal")
	setEnv(t, "NB_ADMIN_PASSWORD", "S3cure-pass")
	setEnv(t, "NB_SESSION_LIFETIME", "2h30m")
	setEnv(t, "NB_EVENT_RETENTION_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/srv/nb/board.db" {
		t.Errorf("DBPath = %q; want %q", cfg.DBPath, "/srv/nb/board.db")
	}
	if cfg.SessionDBPath != "/srv/nb/sessions.db" {
		t.Errorf("SessionDBPath = %q; want %q", cfg.SessionDBPath, "/srv/nb/sessions.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:8080" {
		t.Errorf("ServerAddr() = %q; want %q", cfg.ServerAddr(), "0.0.0.0:8080")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true; want false")
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v; want %v", cfg.SlogLevel(), slog.LevelDebug)
	}
	if cfg.AdminUsername != "principal" {
		t.Errorf("AdminUsername = %q; want %q", cfg.AdminUsername, "principal")
	}
	if cfg.SessionLifetime != 150*time.Minute {
		t.Errorf("SessionLifetime = %v; want %v", cfg.SessionLifetime, 150*time.Minute)
	}
	if cfg.EventRetention() != 30*24*time.Hour {
		t.Errorf("EventRetention() = %v; want %v", cfg.EventRetention(), 30*24*time.Hour)
	}
}

func TestLoad_RequiredSessionSecret(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when NB_SESSION_SECRET is not set")
	}
}

func TestLoad_SessionSecretTooShort(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty", ""},
		{"short", "short"},
		{"31_bytes", "1234567890123456789012345678901"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "NB_SESSION_SECRET", tt.secret)

			if _, err := Load(); err == nil {
				t.Fatalf("Load() should fail with %d-byte secret", len(tt.secret))
			}
		})
	}
}

func TestLoad_WeakSecretRejected(t *testing.T) {
	for _, weak := range knownWeakSecrets {
		os.Clearenv()
		setEnv(t, "NB_SESSION_SECRET", weak)

		if _, err := Load(); err == nil {
			t.Errorf("Load() accepted known weak secret %q", weak)
		}
	}
}

func TestLoad_InvalidLifetimeAndRetention(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"NB_SESSION_LIFETIME", "0s"},
		{"NB_SESSION_LIFETIME", "soon"},
		{"NB_EVENT_RETENTION_DAYS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "NB_SESSION_SECRET", testSecret)
			setEnv(t, tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() should fail for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abcdefABCDEFabcdefABCDEFabcdefAB", false},
		{"abcABC123abcABC123abcABC123abcAB", true},
		{testSecret, true},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v; want %v", tt.secret, got, tt.want)
		}
	}
}
