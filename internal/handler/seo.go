// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/noticeboard/internal/seo"
)

// Robots serves robots.txt. Development instances block all crawlers.
// GET /robots.txt
func Robots(isDev bool) http.HandlerFunc {
	body := seo.BuildRobots(seo.RobotsConfig{DisallowAll: isDev})
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		if _, err := w.Write([]byte(body)); err != nil {
			slog.Debug("failed to write robots.txt", "error", err)
		}
	}
}
