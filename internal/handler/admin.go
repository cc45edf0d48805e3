// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/noticeboard/internal/middleware"
	"github.com/olegiv/noticeboard/internal/model"
	"github.com/olegiv/noticeboard/internal/render"
	"github.com/olegiv/noticeboard/internal/scheduler"
	"github.com/olegiv/noticeboard/internal/service"
	"github.com/olegiv/noticeboard/internal/store"
	"github.com/olegiv/noticeboard/internal/util"
)

// dashboardEventLimit is how many recent events the dashboard shows.
const dashboardEventLimit = 20

// AdminHandler serves the admin dashboard and the notice and contact editors.
type AdminHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	attachments  *service.AttachmentService
	eventService *service.EventService
	dbPath       string
	jobs         JobRunner
}

// JobRunner lists the background jobs and runs one on demand.
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	TriggerNow(ctx context.Context, name string) error
}

// NewAdminHandler creates a new AdminHandler. dbPath is shown on the dashboard.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer, attachments *service.AttachmentService, events *service.EventService, dbPath string) *AdminHandler {
	return &AdminHandler{
		queries:      store.New(db),
		renderer:     renderer,
		attachments:  attachments,
		eventService: events,
		dbPath:       dbPath,
	}
}

// SetJobRunner sets the scheduler behind the dashboard's job table.
func (h *AdminHandler) SetJobRunner(jobs JobRunner) {
	h.jobs = jobs
}

// DashboardData is the data behind the admin dashboard.
type DashboardData struct {
	NoticeCount     int64
	ContactCount    int64
	MarketPostCount int64
	DBPath          string
	Notices         []store.Notice
	Events          []store.Event
	Jobs            []scheduler.JobInfo
}

// NoticeForm is the data behind the notice editor. ID is 0 for a new notice.
type NoticeForm struct {
	ID             int64
	Title          string
	Content        string
	Category       string
	IsPublished    bool
	AttachmentPath string
	Suggestions    []string
	Error          string
}

// ContactForm is the data behind the contact editor. ID is 0 for a new contact.
type ContactForm struct {
	ID    int64
	Name  string
	Role  string
	Phone string
	Email string
	Error string
}

// Dashboard shows counts, all notices and recent events.
// GET /admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := DashboardData{DBPath: h.dbPath}

	var err error
	if data.NoticeCount, err = h.queries.CountNotices(ctx); err != nil {
		databaseError(w, "failed to count notices", "error", err)
		return
	}
	if data.ContactCount, err = h.queries.CountContacts(ctx); err != nil {
		databaseError(w, "failed to count contacts", "error", err)
		return
	}
	if data.MarketPostCount, err = h.queries.CountMarketPosts(ctx); err != nil {
		databaseError(w, "failed to count market posts", "error", err)
		return
	}
	if data.Notices, err = h.queries.ListAllNotices(ctx); err != nil {
		databaseError(w, "failed to list notices", "error", err)
		return
	}
	if h.eventService != nil {
		if data.Events, err = h.eventService.ListRecent(ctx, dashboardEventLimit); err != nil {
			// the dashboard is still useful without the event log
			slog.Warn("failed to list recent events", "error", err)
		}
	}
	if h.jobs != nil {
		data.Jobs = h.jobs.Jobs()
	}

	renderPage(w, r, h.renderer, "admin/dashboard", render.TemplateData{
		Title: "Dashboard",
		Data:  data,
	})
}

// =============================================================================
// NOTICES
// =============================================================================

func (h *AdminHandler) renderNoticeForm(w http.ResponseWriter, r *http.Request, form NoticeForm) {
	form.Suggestions = model.NoticeCategorySuggestions
	title := "New notice"
	if form.ID != 0 {
		title = "Edit notice"
	}
	renderPage(w, r, h.renderer, "admin/notice_form", render.TemplateData{
		Title: title,
		Data:  form,
	})
}

// NewNoticeForm renders an empty notice editor.
// GET /admin/notices/new
func (h *AdminHandler) NewNoticeForm(w http.ResponseWriter, r *http.Request) {
	h.renderNoticeForm(w, r, NoticeForm{IsPublished: true})
}

// CreateNotice stores a new, published notice.
// POST /admin/notices/new
func (h *AdminHandler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	form, attachment, ok := h.readNotice(w, r, NoticeForm{IsPublished: true})
	if !ok {
		return
	}

	notice, err := h.queries.CreateNotice(r.Context(), store.CreateNoticeParams{
		Title:          form.Title,
		Content:        form.Content,
		Category:       model.NoticeCategory(form.Category, model.DefaultNoticeCategory),
		AttachmentPath: attachment,
		IsPublished:    true,
		CreatedBy:      util.NullInt64FromValue(user.ID),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to create notice", "error", err)
		form.Error = msgNoticeCreateFailed
		h.renderNoticeForm(w, r, form)
		return
	}

	h.logNoticeEvent(r, "Notice created", notice.ID)
	flashSuccess(w, r, h.renderer, noticeURL(notice.ID), "Notice created")
}

// EditNoticeForm renders the editor for an existing notice.
// GET /admin/notices/{id}/edit
func (h *AdminHandler) EditNoticeForm(w http.ResponseWriter, r *http.Request) {
	notice, ok := h.requireNotice(w, r)
	if !ok {
		return
	}

	h.renderNoticeForm(w, r, NoticeForm{
		ID:             notice.ID,
		Title:          notice.Title,
		Content:        notice.Content,
		Category:       notice.Category,
		IsPublished:    notice.IsPublished,
		AttachmentPath: notice.AttachmentPath.String,
	})
}

// UpdateNotice saves an edited notice. A blank category keeps the current
// one and a new attachment replaces the old one.
// POST /admin/notices/{id}/edit
func (h *AdminHandler) UpdateNotice(w http.ResponseWriter, r *http.Request) {
	notice, ok := h.requireNotice(w, r)
	if !ok {
		return
	}

	form, attachment, ok := h.readNotice(w, r, NoticeForm{
		ID:             notice.ID,
		AttachmentPath: notice.AttachmentPath.String,
	})
	if !ok {
		return
	}
	if !attachment.Valid {
		attachment = notice.AttachmentPath
	}

	err := h.queries.UpdateNotice(r.Context(), store.UpdateNoticeParams{
		Title:          form.Title,
		Content:        form.Content,
		Category:       model.NoticeCategory(form.Category, notice.Category),
		AttachmentPath: attachment,
		IsPublished:    form.IsPublished,
		UpdatedAt:      util.NullTimeFromValue(time.Now().UTC()),
		ID:             notice.ID,
	})
	if err != nil {
		slog.Error("failed to update notice", "error", err, "notice_id", notice.ID)
		form.Error = msgNoticeUpdateFailed
		h.renderNoticeForm(w, r, form)
		return
	}

	h.logNoticeEvent(r, "Notice updated", notice.ID)
	flashSuccess(w, r, h.renderer, noticeURL(notice.ID), "Notice updated")
}

// DeleteNotice removes a notice.
// POST /admin/notices/{id}/delete
func (h *AdminHandler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, msgNoticeNotFound)
	if !ok {
		return
	}

	if err := h.queries.DeleteNotice(r.Context(), id); err != nil {
		logAndHTTPError(w, msgDeleteFailed, http.StatusInternalServerError,
			"failed to delete notice", "error", err, "notice_id", id)
		return
	}

	h.logNoticeEvent(r, "Notice deleted", id)
	flashSuccess(w, r, h.renderer, RouteRoot, "Notice deleted")
}

func (h *AdminHandler) requireNotice(w http.ResponseWriter, r *http.Request) (store.Notice, bool) {
	id, ok := parseIDParam(w, r, msgNoticeNotFound)
	if !ok {
		return store.Notice{}, false
	}
	return requireEntity(w, msgNoticeNotFound, id, func(id int64) (store.Notice, error) {
		return h.queries.GetNotice(r.Context(), id)
	})
}

// readNotice parses and validates a notice form, re-rendering it on failure.
func (h *AdminHandler) readNotice(w http.ResponseWriter, r *http.Request, form NoticeForm) (NoticeForm, sql.NullString, bool) {
	parseErr := h.attachments.ParseForm(w, r)

	form.Title = strings.TrimSpace(r.PostFormValue("title"))
	form.Content = strings.TrimSpace(r.PostFormValue("content"))
	form.Category = strings.TrimSpace(r.PostFormValue("category"))
	if form.ID != 0 {
		form.IsPublished = r.PostFormValue("is_published") != ""
	}

	fail := func(msg string) (NoticeForm, sql.NullString, bool) {
		form.Error = msg
		h.renderNoticeForm(w, r, form)
		return form, sql.NullString{}, false
	}

	if parseErr != nil {
		if errors.Is(parseErr, service.ErrAttachmentTooLarge) {
			return fail(msgAttachmentTooLarge)
		}
		slog.Warn("failed to parse notice form", "error", parseErr)
		return fail(msgInvalidForm)
	}

	if form.Title == "" || form.Content == "" {
		return fail(msgNoticeRequired)
	}

	attachment, err := h.attachments.Save(r)
	if err != nil {
		if errors.Is(err, service.ErrAttachmentTooLarge) {
			return fail(msgAttachmentTooLarge)
		}
		slog.Error("failed to save attachment", "error", err)
		return fail(msgAttachmentFailed)
	}

	return form, attachment, true
}

func (h *AdminHandler) logNoticeEvent(r *http.Request, message string, noticeID int64) {
	slog.Info(strings.ToLower(message), "notice_id", noticeID)
	if h.eventService == nil {
		return
	}
	uid := middleware.GetUserID(r)
	_ = h.eventService.LogRequestEvent(r, model.EventLevelInfo, model.EventCategoryNotice, message, &uid,
		map[string]any{"notice_id": noticeID})
}

func noticeURL(id int64) string {
	return RouteNotices + "/" + strconv.FormatInt(id, 10)
}

// RunJob runs a scheduled job immediately and reports the outcome as a flash.
// POST /admin/jobs/{name}/run
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil || name == "" {
		http.NotFound(w, r)
		return
	}

	if err := h.jobs.TriggerNow(r.Context(), name); err != nil {
		slog.Error("failed to run job", "error", err, "name", name)
		flashAndRedirect(w, r, h.renderer, RouteDashboard, "Job failed: "+err.Error(), render.FlashError)
		return
	}

	uid := middleware.GetUserID(r)
	if h.eventService != nil {
		_ = h.eventService.LogRequestEvent(r, model.EventLevelInfo, model.EventCategorySystem,
			"Job run manually: "+name, &uid, map[string]any{"job": name})
	}
	slog.Info("scheduled job run manually", "name", name, "triggered_by", uid)
	flashSuccess(w, r, h.renderer, RouteDashboard, "Job finished: "+name)
}

// =============================================================================
// CONTACTS
// =============================================================================

func (h *AdminHandler) renderContactForm(w http.ResponseWriter, r *http.Request, form ContactForm) {
	title := "New contact"
	if form.ID != 0 {
		title = "Edit contact"
	}
	renderPage(w, r, h.renderer, "admin/contact_form", render.TemplateData{
		Title: title,
		Data:  form,
	})
}

// readContact parses a contact form. Name is required.
func (h *AdminHandler) readContact(w http.ResponseWriter, r *http.Request, form ContactForm) (ContactForm, bool) {
	if err := r.ParseForm(); err != nil {
		form.Error = msgInvalidForm
		h.renderContactForm(w, r, form)
		return form, false
	}

	form.Name = strings.TrimSpace(r.PostFormValue("name"))
	form.Role = strings.TrimSpace(r.PostFormValue("role"))
	form.Phone = strings.TrimSpace(r.PostFormValue("phone"))
	form.Email = strings.TrimSpace(r.PostFormValue("email"))

	if form.Name == "" {
		form.Error = msgContactRequired
		h.renderContactForm(w, r, form)
		return form, false
	}
	return form, true
}

// NewContactForm renders an empty contact editor.
// GET /admin/contacts/new
func (h *AdminHandler) NewContactForm(w http.ResponseWriter, r *http.Request) {
	h.renderContactForm(w, r, ContactForm{})
}

// CreateContact adds a contact.
// POST /admin/contacts/new
func (h *AdminHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	form, ok := h.readContact(w, r, ContactForm{})
	if !ok {
		return
	}

	contact, err := h.queries.CreateContact(r.Context(), store.CreateContactParams{
		Name:  form.Name,
		Role:  form.Role,
		Phone: form.Phone,
		Email: form.Email,
	})
	if err != nil {
		slog.Error("failed to create contact", "error", err)
		form.Error = msgContactCreateFailed
		h.renderContactForm(w, r, form)
		return
	}

	slog.Info("contact created", "contact_id", contact.ID)
	flashSuccess(w, r, h.renderer, RouteContacts, "Contact added")
}

// EditContactForm renders the editor for an existing contact.
// GET /admin/contacts/{id}/edit
func (h *AdminHandler) EditContactForm(w http.ResponseWriter, r *http.Request) {
	contact, ok := h.requireContact(w, r)
	if !ok {
		return
	}

	h.renderContactForm(w, r, ContactForm{
		ID:    contact.ID,
		Name:  contact.Name,
		Role:  contact.Role,
		Phone: contact.Phone,
		Email: contact.Email,
	})
}

// UpdateContact saves an edited contact.
// POST /admin/contacts/{id}/edit
func (h *AdminHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	contact, ok := h.requireContact(w, r)
	if !ok {
		return
	}

	form, ok := h.readContact(w, r, ContactForm{ID: contact.ID})
	if !ok {
		return
	}

	err := h.queries.UpdateContact(r.Context(), store.UpdateContactParams{
		Name:  form.Name,
		Role:  form.Role,
		Phone: form.Phone,
		Email: form.Email,
		ID:    contact.ID,
	})
	if err != nil {
		slog.Error("failed to update contact", "error", err, "contact_id", contact.ID)
		form.Error = msgContactUpdateFailed
		h.renderContactForm(w, r, form)
		return
	}

	flashSuccess(w, r, h.renderer, RouteContacts, "Contact updated")
}

// DeleteContact removes a contact.
// POST /admin/contacts/{id}/delete
func (h *AdminHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, msgContactNotFound)
	if !ok {
		return
	}

	if err := h.queries.DeleteContact(r.Context(), id); err != nil {
		logAndHTTPError(w, msgDeleteFailed, http.StatusInternalServerError,
			"failed to delete contact", "error", err, "contact_id", id)
		return
	}

	slog.Info("contact deleted", "contact_id", id)
	flashSuccess(w, r, h.renderer, RouteContacts, "Contact deleted")
}

func (h *AdminHandler) requireContact(w http.ResponseWriter, r *http.Request) (store.Contact, bool) {
	id, ok := parseIDParam(w, r, msgContactNotFound)
	if !ok {
		return store.Contact{}, false
	}
	return requireEntity(w, msgContactNotFound, id, func(id int64) (store.Contact, error) {
		return h.queries.GetContact(r.Context(), id)
	})
}
