// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/noticeboard/internal/render"
	"github.com/olegiv/noticeboard/internal/util"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// logAndHTTPError logs an error and writes a plain-text HTTP error response.
func logAndHTTPError(w http.ResponseWriter, message string, statusCode int, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(w, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// databaseError logs a store failure and answers 500 "Database error".
func databaseError(w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(w, msgDatabaseError, http.StatusInternalServerError, logMsg, args...)
}

// renderPage renders a template and turns a render failure into a 500.
func renderPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, name string, data render.TemplateData) {
	if err := renderer.Render(w, r, name, data); err != nil {
		logAndInternalError(w, "failed to render template", "template", name, "error", err)
	}
}

// parseIDParam reads the {id} URL parameter. A malformed id answers 404
// with notFoundMsg, the same as a missing row.
func parseIDParam(w http.ResponseWriter, r *http.Request, notFoundMsg string) (int64, bool) {
	id, ok := util.ParseID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, notFoundMsg, http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// requireEntity fetches an entity by ID using the provided query function.
// sql.ErrNoRows answers 404 with notFoundMsg; other errors answer 500.
// Returns the entity and true if successful, or zero value and false if a
// response was already written.
//
// Example usage:
//
//	notice, ok := requireEntity(w, msgNoticeNotFound, id,
//	    func(id int64) (store.Notice, error) { return h.queries.GetNotice(r.Context(), id) })
func requireEntity[T any](
	w http.ResponseWriter,
	notFoundMsg string,
	id int64,
	queryFn func(id int64) (T, error),
) (T, bool) {
	var zero T
	entity, err := queryFn(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, notFoundMsg, http.StatusNotFound)
		} else {
			databaseError(w, "failed to load entity", "error", err, "id", id)
		}
		return zero, false
	}
	return entity, true
}
