// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/noticeboard/internal/auth"
	"github.com/olegiv/noticeboard/internal/middleware"
	"github.com/olegiv/noticeboard/internal/render"
	"github.com/olegiv/noticeboard/internal/scheduler"
	"github.com/olegiv/noticeboard/internal/service"
	"github.com/olegiv/noticeboard/internal/session"
	"github.com/olegiv/noticeboard/internal/store"
	"github.com/olegiv/noticeboard/internal/testutil"
	"github.com/olegiv/noticeboard/web"
)

const testPassword = "correct-horse-battery"

// testApp is a fully wired noticeboard served by httptest.
type testApp struct {
	db      *sql.DB
	queries *store.Queries
	server  *httptest.Server
	lp      *middleware.LoginProtection
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	sm := session.New(testutil.TestSessionDB(t), true, time.Hour)

	templatesFS, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)

	attachments := service.NewAttachmentService(t.TempDir())
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		ThumbURL:       attachments.ThumbURL,
	})
	require.NoError(t, err)

	// generous per-IP limit: every test client shares 127.0.0.1
	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit: 100,
		IPBurst:     100,
	})
	t.Cleanup(lp.Close)

	events := service.NewEventService(db)
	sched := scheduler.New(events, scheduler.Config{EventRetention: 90 * 24 * time.Hour}, testutil.TestLogger())
	require.NoError(t, sched.Start())
	t.Cleanup(sched.Stop)

	router, err := NewRouter(RouterConfig{
		DB:              db,
		DBPath:          "test.db",
		SessionManager:  sm,
		Renderer:        renderer,
		Events:          events,
		Attachments:     attachments,
		LoginProtection: lp,
		Scheduler:       sched,
		CSRFAuthKey:     []byte(strings.Repeat("k", 32)),
		IsDev:           true,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testApp{
		db:      db,
		queries: store.New(db),
		server:  srv,
		lp:      lp,
	}
}

// client returns a cookie-keeping client that does not follow redirects.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// createUser inserts a user with testPassword.
func (a *testApp) createUser(t *testing.T, username, role string) store.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	user, err := a.queries.CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return user
}

// login logs c in as username and fails the test unless it succeeds.
func (a *testApp) login(t *testing.T, c *http.Client, username string) {
	t.Helper()
	resp, body := a.post(t, c, RouteLogin, url.Values{
		"username": {username},
		"password": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode, "login body: %s", body)
}

func (a *testApp) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(a.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) post(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(a.server.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
