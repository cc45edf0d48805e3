// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"slices"
	"strings"

	"github.com/olegiv/noticeboard/internal/middleware"
	"github.com/olegiv/noticeboard/internal/model"
	"github.com/olegiv/noticeboard/internal/render"
	"github.com/olegiv/noticeboard/internal/store"
)

// FrontendHandler serves the public notice and contact pages.
type FrontendHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewFrontendHandler creates a new FrontendHandler.
func NewFrontendHandler(db *sql.DB, renderer *render.Renderer) *FrontendHandler {
	return &FrontendHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// HomeData is the data behind the home page.
type HomeData struct {
	Notices []store.Notice
}

// NoticesData is the data behind the notice list.
type NoticesData struct {
	Notices    []store.Notice
	Category   string
	Categories []string
}

// NoticeView is the data behind a notice detail page.
type NoticeView struct {
	Notice  store.Notice
	CanEdit bool
}

// ContactsData is the data behind the contact directory.
type ContactsData struct {
	Contacts []store.Contact
}

// Home lists the most recent published notices.
// GET /
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	notices, err := h.queries.ListPublishedNotices(r.Context(), model.HomeNoticeLimit)
	if err != nil {
		databaseError(w, "failed to list recent notices", "error", err)
		return
	}

	renderPage(w, r, h.renderer, "home", render.TemplateData{
		Title: "Home",
		Data:  HomeData{Notices: notices},
	})
}

// Notices lists published notices, optionally filtered by ?category=.
// GET /notices
func (h *FrontendHandler) Notices(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	var (
		notices []store.Notice
		err     error
	)
	if category != "" {
		notices, err = h.queries.ListNoticesByCategory(r.Context(), category)
	} else {
		notices, err = h.queries.ListNotices(r.Context())
	}
	if err != nil {
		databaseError(w, "failed to list notices", "error", err, "category", category)
		return
	}

	categories := slices.Clone(model.NoticeCategorySuggestions)
	if category != "" && !slices.Contains(categories, category) {
		categories = append(categories, category)
	}

	renderPage(w, r, h.renderer, "notices", render.TemplateData{
		Title: "Notices",
		Data: NoticesData{
			Notices:    notices,
			Category:   category,
			Categories: categories,
		},
	})
}

// Notice shows one notice. Unpublished notices are visible to admins only.
// GET /notices/{id}
func (h *FrontendHandler) Notice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, msgNoticeNotFound)
	if !ok {
		return
	}

	notice, ok := requireEntity(w, msgNoticeNotFound, id, func(id int64) (store.Notice, error) {
		return h.queries.GetNotice(r.Context(), id)
	})
	if !ok {
		return
	}

	isAdmin := middleware.IsAdmin(r)
	if !notice.IsPublished && !isAdmin {
		http.Error(w, msgNoticeNotFound, http.StatusNotFound)
		return
	}

	renderPage(w, r, h.renderer, "notice", render.TemplateData{
		Title: notice.Title,
		Data:  NoticeView{Notice: notice, CanEdit: isAdmin},
	})
}

// Contacts lists the contact directory by name.
// GET /contacts
func (h *FrontendHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.queries.ListContacts(r.Context())
	if err != nil {
		databaseError(w, "failed to list contacts", "error", err)
		return
	}

	renderPage(w, r, h.renderer, "contacts", render.TemplateData{
		Title: "Contacts",
		Data:  ContactsData{Contacts: contacts},
	})
}
