// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStaticCache(t *testing.T) {
	tests := []struct {
		name   string
		maxAge time.Duration
		want   string
	}{
		{"static assets", StaticMaxAge, "public, max-age=31536000"},
		{"uploads", UploadMaxAge, "public, max-age=604800"},
		{"one hour", time.Hour, "public, max-age=3600"},
		{"zero", 0, "public, max-age=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			StaticCache(tt.maxAge)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/site.css", nil))

			if got := rr.Header().Get("Cache-Control"); got != tt.want {
				t.Errorf("Cache-Control = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStaticCachePreservesResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = w.Write([]byte("body{}"))
	})

	rr := httptest.NewRecorder()
	StaticCache(time.Hour)(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/site.css", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/css" {
		t.Errorf("Content-Type = %q, want text/css", ct)
	}
	if body := rr.Body.String(); body != "body{}" {
		t.Errorf("Body = %q, want %q", body, "body{}")
	}
}
