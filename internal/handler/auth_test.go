// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/olegiv/noticeboard/internal/auth"
	"github.com/olegiv/noticeboard/internal/model"
	"github.com/olegiv/noticeboard/internal/store"
)

func TestRegister(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp, _ := app.post(t, c, RouteRegister, url.Values{
		"username": {"  dana  "},
		"password": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteMarket, resp.Header.Get("Location"))

	user, err := app.queries.GetUserByUsername(context.Background(), "dana")
	require.NoError(t, err, "username should be stored trimmed")
	assert.Equal(t, model.RoleUser, user.Role)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$argon2id$"))

	// the new session is live: the market page greets the user
	_, body := app.get(t, c, RouteMarket)
	assert.Contains(t, body, "Welcome, dana!")
	assert.Contains(t, body, "New post")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "erin", model.RoleUser)

	resp, body := app.post(t, app.client(t), RouteRegister, url.Values{
		"username": {"erin"},
		"password": {"another-password"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, msgUsernameTaken)

	count, err := app.queries.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRegisterRequiresFields(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"missing password", url.Values{"username": {"frank"}}},
		{"blank username", url.Values{"username": {"   "}, "password": {"pw"}}},
		{"empty form", url.Values{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := app.post(t, app.client(t), RouteRegister, tt.form)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d; want %d", resp.StatusCode, http.StatusOK)
			}
			if !strings.Contains(body, msgRegisterRequired) {
				t.Errorf("body missing %q", msgRegisterRequired)
			}
		})
	}

	count, err := app.queries.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLoginRedirectsByRole(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "root", model.RoleAdmin)
	app.createUser(t, "gina", model.RoleUser)

	tests := []struct {
		username string
		want     string
	}{
		{"root", RouteDashboard},
		{"gina", RouteMarket},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			c := app.client(t)
			resp, _ := app.post(t, c, RouteLogin, url.Values{
				"username": {tt.username},
				"password": {testPassword},
			})
			if resp.StatusCode != http.StatusSeeOther {
				t.Fatalf("status = %d; want %d", resp.StatusCode, http.StatusSeeOther)
			}
			if loc := resp.Header.Get("Location"); loc != tt.want {
				t.Errorf("Location = %q; want %q", loc, tt.want)
			}

			// a logged-in user visiting the login page is sent home
			resp, _ = app.get(t, c, RouteLogin)
			if loc := resp.Header.Get("Location"); loc != tt.want {
				t.Errorf("login page Location = %q; want %q", loc, tt.want)
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "hank", model.RoleUser)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "hank", "nope"},
		{"unknown user", "nobody", testPassword},
		{"empty password", "hank", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := app.post(t, app.client(t), RouteLogin, url.Values{
				"username": {tt.username},
				"password": {tt.password},
			})
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, msgInvalidCredentials)
		})
	}
}

func TestLoginLockout(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "ivan", model.RoleUser)
	c := app.client(t)

	var body string
	for i := 0; i < 5; i++ {
		_, body = app.post(t, c, RouteLogin, url.Values{
			"username": {"ivan"},
			"password": {"wrong"},
		})
	}
	assert.Contains(t, body, msgTooManyAttempts)

	// even the right password is refused while locked
	resp, body := app.post(t, c, RouteLogin, url.Values{
		"username": {"ivan"},
		"password": {testPassword},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, msgTooManyAttempts)

	events, err := app.queries.ListRecentEvents(context.Background(), 50)
	require.NoError(t, err)
	var locked bool
	for _, e := range events {
		if e.Message == "Account locked due to failed attempts" {
			locked = true
			assert.Equal(t, model.EventCategoryAuth, e.Category)
		}
	}
	assert.True(t, locked, "lockout should be recorded in the event log")
}

func TestLoginUpgradesBcryptHash(t *testing.T) {
	app := newTestApp(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := app.queries.CreateUser(context.Background(), store.CreateUserParams{
		Username:     "judy",
		PasswordHash: string(legacy),
		Role:         model.RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	app.login(t, app.client(t), "judy")

	updated, err := app.queries.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, auth.IsBcrypt(updated.PasswordHash), "hash should be upgraded")
	assert.False(t, auth.NeedsRehash(updated.PasswordHash))

	ok, err := auth.CheckPassword(testPassword, updated.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "kim", model.RoleUser)
	c := app.client(t)
	app.login(t, c, "kim")

	resp, _ := app.post(t, c, RouteLogout, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteRoot, resp.Header.Get("Location"))

	// the session is gone, so writing needs a login again
	resp, _ = app.get(t, c, RouteMarket+RouteSuffixNew)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteLogin, resp.Header.Get("Location"))
}

func TestSeededAdminCanLogIn(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, store.Seed(context.Background(), app.db, "", ""))

	user, err := app.queries.GetUserByUsername(context.Background(), store.DefaultAdminUsername)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)

	resp, _ := app.post(t, app.client(t), RouteLogin, url.Values{
		"username": {store.DefaultAdminUsername},
		"password": {store.DefaultAdminPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, RouteDashboard, resp.Header.Get("Location"))
}
