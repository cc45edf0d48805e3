// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP handlers of the noticeboard.
package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/noticeboard/internal/auth"
	"github.com/olegiv/noticeboard/internal/middleware"
	"github.com/olegiv/noticeboard/internal/model"
	"github.com/olegiv/noticeboard/internal/render"
	"github.com/olegiv/noticeboard/internal/service"
	"github.com/olegiv/noticeboard/internal/store"
)

// AuthHandler handles login, logout and registration.
type AuthHandler struct {
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, events *service.EventService, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		eventService:    events,
		loginProtection: lp,
	}
}

// CredentialsForm is the data behind the login and register pages.
type CredentialsForm struct {
	Username string
	Error    string
}

// homeFor returns where a user lands after logging in.
func homeFor(role string) string {
	if model.IsAdmin(role) {
		return RouteDashboard
	}
	return RouteMarket
}

// LoginForm renders the login page.
// GET /admin/login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		http.Redirect(w, r, homeFor(user.Role), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, CredentialsForm{})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, form CredentialsForm) {
	renderPage(w, r, h.renderer, "login", render.TemplateData{
		Title: "Log in",
		Data:  form,
	})
}

// Login handles the login form submission.
// POST /admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, CredentialsForm{Error: msgInvalidForm})
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	form := CredentialsForm{Username: username, Error: msgInvalidCredentials}

	if username == "" || password == "" {
		h.renderLogin(w, r, form)
		return
	}

	if h.loginProtection != nil {
		if locked, _ := h.loginProtection.IsAccountLocked(username); locked {
			h.logAuth(r, model.EventLevelWarning, "Login attempt on locked account", nil, username)
			form.Error = msgTooManyAttempts
			h.renderLogin(w, r, form)
			return
		}
	}

	user, err := h.queries.GetUserByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("database error during login", "error", err)
		}
		h.logAuth(r, model.EventLevelWarning, "Login failed: unknown user", nil, username)
		// unknown usernames count too, so lockout reveals nothing
		h.failLogin(w, r, form)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err, "user_id", user.ID)
	}
	if !valid {
		h.logAuth(r, model.EventLevelWarning, "Login failed: invalid password", &user.ID, username)
		h.failLogin(w, r, form)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(username)
	}

	// Legacy bcrypt hashes and outdated argon2 parameters are upgraded in place
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with current parameters", "user_id", user.ID)
			}
		}
	}

	// Regenerate session token to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	h.logAuth(r, model.EventLevelInfo, "User logged in", &user.ID, username)

	http.Redirect(w, r, homeFor(user.Role), http.StatusSeeOther)
}

// failLogin records a failed attempt and re-renders the form.
func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, form CredentialsForm) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(form.Username); locked {
			h.logAuth(r, model.EventLevelWarning, "Account locked due to failed attempts", nil, form.Username)
			slog.Info("login locked", "username", form.Username, "duration", lockDuration.String())
			form.Error = msgTooManyAttempts
		}
	}
	h.renderLogin(w, r, form)
}

// Logout destroys the session.
// GET/POST /admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)
	if userID > 0 {
		h.logAuth(r, model.EventLevelInfo, "User logged out", &userID, "")
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}

// RegisterForm renders the registration page.
// GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, RouteMarket, http.StatusSeeOther)
		return
	}
	h.renderRegister(w, r, CredentialsForm{})
}

func (h *AuthHandler) renderRegister(w http.ResponseWriter, r *http.Request, form CredentialsForm) {
	renderPage(w, r, h.renderer, "register", render.TemplateData{
		Title: "Register",
		Data:  form,
	})
}

// Register creates a regular user account and logs it in.
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRegister(w, r, CredentialsForm{Error: msgInvalidForm})
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	form := CredentialsForm{Username: username}

	if username == "" || password == "" {
		form.Error = msgRegisterRequired
		h.renderRegister(w, r, form)
		return
	}

	exists, err := h.queries.UsernameExists(r.Context(), username)
	if err != nil {
		slog.Error("failed to check username", "error", err)
		form.Error = msgDatabaseError
		h.renderRegister(w, r, form)
		return
	}
	if exists > 0 {
		form.Error = msgUsernameTaken
		h.renderRegister(w, r, form)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		form.Error = msgRegisterFailed
		h.renderRegister(w, r, form)
		return
	}

	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		// the UNIQUE index catches a registration racing this one
		if store.IsUniqueViolation(err) {
			form.Error = msgUsernameTaken
		} else {
			slog.Error("failed to create user", "error", err)
			form.Error = msgRegisterFailed
		}
		h.renderRegister(w, r, form)
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	h.logAuth(r, model.EventLevelInfo, "User registered", &user.ID, username)

	flashSuccess(w, r, h.renderer, RouteMarket, "Welcome, "+user.Username+"!")
}

func (h *AuthHandler) logAuth(r *http.Request, level, message string, userID *int64, username string) {
	if h.eventService == nil {
		return
	}
	var meta map[string]any
	if username != "" {
		meta = map[string]any{"username": username}
	}
	_ = h.eventService.LogAuthEvent(r, level, message, userID, meta)
}
