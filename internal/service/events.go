// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the application services shared by handlers:
// the event log and attachment storage.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/noticeboard/internal/model"
	"github.com/olegiv/noticeboard/internal/store"
	"github.com/olegiv/noticeboard/internal/util"
)

// EventService writes and reads the events table.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, ipAddress string, metadata map[string]any) error {
	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    util.NullInt64FromPtr(userID),
		IpAddress: ipAddress,
		Metadata:  metadataJSON,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		// slog.Error here would loop back through EventLogHandler
		slog.Debug("failed to write event", "error", err)
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// LogAuthEvent records an authentication event for request r. The client IP
// and a parsed user-agent summary are attached.
func (s *EventService) LogAuthEvent(r *http.Request, level, message string, userID *int64, metadata map[string]any) error {
	return s.LogRequestEvent(r, level, model.EventCategoryAuth, message, userID, metadata)
}

// LogRequestEvent records an event tied to an HTTP request.
func (s *EventService) LogRequestEvent(r *http.Request, level, category, message string, userID *int64, metadata map[string]any) error {
	meta := make(map[string]any, len(metadata)+4)
	for k, v := range metadata {
		meta[k] = v
	}
	for k, v := range userAgentSummary(r.UserAgent()) {
		meta[k] = v
	}
	meta["path"] = r.URL.Path

	// The request may already be cancelled (e.g. logout); the event must still land.
	ctx := context.WithoutCancel(r.Context())
	return s.LogEvent(ctx, level, category, message, userID, ClientIP(r), meta)
}

// ListRecent returns the newest events first.
func (s *EventService) ListRecent(ctx context.Context, limit int64) ([]store.Event, error) {
	return s.queries.ListRecentEvents(ctx, limit)
}

// DeleteOldEvents removes events older than olderThan and returns how many were deleted.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	n, err := s.queries.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}

// userAgentSummary reduces a User-Agent header to browser, OS and device.
func userAgentSummary(ua string) map[string]string {
	if ua == "" {
		return nil
	}
	parsed := useragent.Parse(ua)

	browser := parsed.Name
	if browser == "" {
		browser = "Unknown"
	}
	os := parsed.OS
	if os == "" {
		os = "Unknown"
	}

	device := "desktop"
	switch {
	case parsed.Bot:
		device = "bot"
	case parsed.Tablet:
		device = "tablet"
	case parsed.Mobile:
		device = "mobile"
	}

	return map[string]string{
		"browser": browser,
		"os":      os,
		"device":  device,
	}
}

// ClientIP returns the request's client IP without port. chi's RealIP
// middleware has already folded X-Real-IP/X-Forwarded-For into RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
