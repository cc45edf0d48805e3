// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/noticeboard/internal/middleware"
	"github.com/olegiv/noticeboard/internal/model"
	"github.com/olegiv/noticeboard/internal/render"
	"github.com/olegiv/noticeboard/internal/service"
	"github.com/olegiv/noticeboard/internal/store"
	"github.com/olegiv/noticeboard/internal/util"
)

// MarketHandler serves the classifieds market.
type MarketHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	attachments  *service.AttachmentService
	eventService *service.EventService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(db *sql.DB, renderer *render.Renderer, attachments *service.AttachmentService, events *service.EventService) *MarketHandler {
	return &MarketHandler{
		queries:      store.New(db),
		renderer:     renderer,
		attachments:  attachments,
		eventService: events,
	}
}

// MarketData is the data behind the market list.
type MarketData struct {
	Posts      []store.ListMarketPostsRow
	Category   string
	Categories []string
}

// MarketPostView is the data behind a market post detail page.
type MarketPostView struct {
	Post    store.GetMarketPostRow
	CanEdit bool
}

// MarketForm is the data behind the create and edit forms.
// ID is 0 for a new post.
type MarketForm struct {
	ID             int64
	Title          string
	Description    string
	Category       string
	Price          string
	ContactName    string
	ContactPhone   string
	ContactEmail   string
	AttachmentPath string
	Categories     []string
	Error          string
}

// marketInput is a validated market form submission.
type marketInput struct {
	title, description, category string
	price                        sql.NullFloat64
	contactName                  string
	contactPhone                 string
	contactEmail                 string
}

// List shows market posts, optionally filtered by ?category=.
// GET /market
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	var (
		posts []store.ListMarketPostsRow
		err   error
	)
	if category != "" {
		posts, err = h.queries.ListMarketPostsByCategory(r.Context(), category)
	} else {
		posts, err = h.queries.ListMarketPosts(r.Context())
	}
	if err != nil {
		databaseError(w, "failed to list market posts", "error", err, "category", category)
		return
	}

	renderPage(w, r, h.renderer, "market", render.TemplateData{
		Title: "Market",
		Data: MarketData{
			Posts:      posts,
			Category:   category,
			Categories: model.MarketCategories,
		},
	})
}

// Show displays one market post.
// GET /market/{id}
func (h *MarketHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, msgPostNotFound)
	if !ok {
		return
	}

	post, ok := requireEntity(w, msgPostNotFound, id, func(id int64) (store.GetMarketPostRow, error) {
		return h.queries.GetMarketPost(r.Context(), id)
	})
	if !ok {
		return
	}

	canEdit := false
	if user := middleware.GetUser(r); user != nil {
		canEdit = model.CanEditMarketPost(user.ID, user.Role, post.CreatedBy)
	}

	renderPage(w, r, h.renderer, "market_post", render.TemplateData{
		Title: post.Title,
		Data:  MarketPostView{Post: post, CanEdit: canEdit},
	})
}

// NewForm renders an empty market post form.
// GET /market/new
func (h *MarketHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, MarketForm{})
}

func (h *MarketHandler) renderForm(w http.ResponseWriter, r *http.Request, form MarketForm) {
	form.Categories = model.MarketCategories
	title := "New post"
	if form.ID != 0 {
		title = "Edit post"
	}
	renderPage(w, r, h.renderer, "market_form", render.TemplateData{
		Title: title,
		Data:  form,
	})
}

// Create stores a new market post owned by the current user.
// POST /market/new
func (h *MarketHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	form, in, attachment, ok := h.readSubmission(w, r, MarketForm{})
	if !ok {
		return
	}

	post, err := h.queries.CreateMarketPost(r.Context(), store.CreateMarketPostParams{
		Title:          in.title,
		Description:    in.description,
		Category:       in.category,
		Price:          in.price,
		AttachmentPath: attachment,
		ContactName:    in.contactName,
		ContactPhone:   in.contactPhone,
		ContactEmail:   in.contactEmail,
		CreatedBy:      user.ID,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to create market post", "error", err, "user_id", user.ID)
		form.Error = msgMarketCreateFailed
		h.renderForm(w, r, form)
		return
	}

	slog.Info("market post created", "post_id", post.ID, "user_id", user.ID)
	flashSuccess(w, r, h.renderer, postURL(post.ID), "Post created")
}

// EditForm renders the form for an existing post.
// GET /market/{id}/edit
func (h *MarketHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	post, ok := h.requireEditable(w, r)
	if !ok {
		return
	}

	h.renderForm(w, r, MarketForm{
		ID:             post.ID,
		Title:          post.Title,
		Description:    post.Description,
		Category:       post.Category,
		Price:          formatPriceInput(post.Price),
		ContactName:    post.ContactName,
		ContactPhone:   post.ContactPhone,
		ContactEmail:   post.ContactEmail,
		AttachmentPath: post.AttachmentPath.String,
	})
}

// Update saves changes to an existing post. A new attachment replaces the
// old one; otherwise the existing attachment is kept.
// POST /market/{id}/edit
func (h *MarketHandler) Update(w http.ResponseWriter, r *http.Request) {
	post, ok := h.requireEditable(w, r)
	if !ok {
		return
	}

	form, in, attachment, ok := h.readSubmission(w, r, MarketForm{
		ID:             post.ID,
		AttachmentPath: post.AttachmentPath.String,
	})
	if !ok {
		return
	}
	if !attachment.Valid {
		attachment = post.AttachmentPath
	}

	err := h.queries.UpdateMarketPost(r.Context(), store.UpdateMarketPostParams{
		Title:          in.title,
		Description:    in.description,
		Category:       in.category,
		Price:          in.price,
		AttachmentPath: attachment,
		ContactName:    in.contactName,
		ContactPhone:   in.contactPhone,
		ContactEmail:   in.contactEmail,
		UpdatedAt:      util.NullTimeFromValue(time.Now().UTC()),
		ID:             post.ID,
	})
	if err != nil {
		slog.Error("failed to update market post", "error", err, "post_id", post.ID)
		form.Error = msgMarketUpdateFailed
		h.renderForm(w, r, form)
		return
	}

	flashSuccess(w, r, h.renderer, postURL(post.ID), "Post updated")
}

// Delete removes a post.
// POST /market/{id}/delete
func (h *MarketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	post, ok := h.requireEditable(w, r)
	if !ok {
		return
	}

	if err := h.queries.DeleteMarketPost(r.Context(), post.ID); err != nil {
		logAndHTTPError(w, msgDeleteFailed, http.StatusInternalServerError,
			"failed to delete market post", "error", err, "post_id", post.ID)
		return
	}

	user := middleware.GetUser(r)
	slog.Info("market post deleted", "post_id", post.ID, "user_id", user.ID)
	if h.eventService != nil && user.ID != post.CreatedBy {
		uid := user.ID
		_ = h.eventService.LogRequestEvent(r, model.EventLevelInfo, model.EventCategoryMarket,
			"Market post deleted by admin", &uid, map[string]any{"post_id": post.ID, "owner_id": post.CreatedBy})
	}

	flashSuccess(w, r, h.renderer, RouteMarket, "Post deleted")
}

// requireEditable loads the {id} post and checks the current user may
// change it. Missing posts answer 404, foreign posts 403.
func (h *MarketHandler) requireEditable(w http.ResponseWriter, r *http.Request) (store.GetMarketPostRow, bool) {
	id, ok := parseIDParam(w, r, msgPostNotFound)
	if !ok {
		return store.GetMarketPostRow{}, false
	}

	post, ok := requireEntity(w, msgPostNotFound, id, func(id int64) (store.GetMarketPostRow, error) {
		return h.queries.GetMarketPost(r.Context(), id)
	})
	if !ok {
		return store.GetMarketPostRow{}, false
	}

	user := middleware.GetUser(r)
	if user == nil || !model.CanEditMarketPost(user.ID, user.Role, post.CreatedBy) {
		var uid int64
		if user != nil {
			uid = user.ID
		}
		slog.Info("market post edit denied", "post_id", post.ID, "user_id", uid)
		http.Error(w, msgForbidden, http.StatusForbidden)
		return store.GetMarketPostRow{}, false
	}

	return post, true
}

// readSubmission parses and validates a market form. On failure the form is
// re-rendered and ok is false. form carries the submitted values back.
func (h *MarketHandler) readSubmission(w http.ResponseWriter, r *http.Request, form MarketForm) (MarketForm, marketInput, sql.NullString, bool) {
	parseErr := h.attachments.ParseForm(w, r)

	form.Title = strings.TrimSpace(r.PostFormValue("title"))
	form.Description = strings.TrimSpace(r.PostFormValue("description"))
	form.Category = strings.TrimSpace(r.PostFormValue("category"))
	form.Price = strings.TrimSpace(r.PostFormValue("price"))
	form.ContactName = strings.TrimSpace(r.PostFormValue("contact_name"))
	form.ContactPhone = strings.TrimSpace(r.PostFormValue("contact_phone"))
	form.ContactEmail = strings.TrimSpace(r.PostFormValue("contact_email"))

	fail := func(msg string) (MarketForm, marketInput, sql.NullString, bool) {
		form.Error = msg
		h.renderForm(w, r, form)
		return form, marketInput{}, sql.NullString{}, false
	}

	if parseErr != nil {
		if errors.Is(parseErr, service.ErrAttachmentTooLarge) {
			return fail(msgAttachmentTooLarge)
		}
		slog.Warn("failed to parse market form", "error", parseErr)
		return fail(msgInvalidForm)
	}

	if form.Title == "" || form.Description == "" || form.Category == "" {
		return fail(msgMarketRequired)
	}
	if !model.IsValidMarketCategory(form.Category) {
		return fail(msgMarketBadCategory)
	}
	price, err := model.ParsePrice(form.Price)
	if err != nil {
		return fail(msgMarketBadPrice)
	}

	attachment, err := h.attachments.Save(r)
	if err != nil {
		if errors.Is(err, service.ErrAttachmentTooLarge) {
			return fail(msgAttachmentTooLarge)
		}
		slog.Error("failed to save attachment", "error", err)
		return fail(msgAttachmentFailed)
	}

	return form, marketInput{
		title:        form.Title,
		description:  form.Description,
		category:     form.Category,
		price:        price,
		contactName:  form.ContactName,
		contactPhone: form.ContactPhone,
		contactEmail: form.ContactEmail,
	}, attachment, true
}

func postURL(id int64) string {
	return RouteMarket + "/" + strconv.FormatInt(id, 10)
}

// formatPriceInput renders a stored price for the edit form without
// trailing zeros.
func formatPriceInput(p sql.NullFloat64) string {
	if !p.Valid {
		return ""
	}
	return strconv.FormatFloat(p.Float64, 'f', -1, 64)
}
