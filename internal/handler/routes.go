// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/noticeboard/internal/middleware"
	"github.com/olegiv/noticeboard/internal/render"
	"github.com/olegiv/noticeboard/internal/scheduler"
	"github.com/olegiv/noticeboard/internal/service"
	"github.com/olegiv/noticeboard/web"
)

// RouterConfig carries everything the router needs. Scheduler is optional;
// its jobs are listed on the dashboard. AccessLog enables chi's request logger.
type RouterConfig struct {
	DB              *sql.DB
	DBPath          string
	SessionManager  *scs.SessionManager
	Renderer        *render.Renderer
	Events          *service.EventService
	Attachments     *service.AttachmentService
	LoginProtection *middleware.LoginProtection
	Scheduler       *scheduler.Scheduler
	CSRFAuthKey     []byte
	IsDev           bool
	Port            int
	AccessLog       bool
}

// crudRoutes are the handlers behind a new/edit/delete resource.
type crudRoutes struct {
	NewForm  http.HandlerFunc
	Create   http.HandlerFunc
	EditForm http.HandlerFunc
	Update   http.HandlerFunc
	Delete   http.HandlerFunc
}

// registerCRUD registers GET+POST base/new, GET+POST base/{id}/edit and
// POST base/{id}/delete.
func registerCRUD(r chi.Router, base string, h crudRoutes) {
	r.Get(base+RouteSuffixNew, h.NewForm)
	r.Post(base+RouteSuffixNew, h.Create)
	r.Get(base+RouteSuffixEdit, h.EditForm)
	r.Post(base+RouteSuffixEdit, h.Update)
	r.Post(base+RouteSuffixDel, h.Delete)
}

// NewRouter builds the full HTTP handler: middleware stack, file servers
// and every page route.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	authHandler := NewAuthHandler(cfg.DB, cfg.Renderer, cfg.SessionManager, cfg.Events, cfg.LoginProtection)
	frontendHandler := NewFrontendHandler(cfg.DB, cfg.Renderer)
	marketHandler := NewMarketHandler(cfg.DB, cfg.Renderer, cfg.Attachments, cfg.Events)
	adminHandler := NewAdminHandler(cfg.DB, cfg.Renderer, cfg.Attachments, cfg.Events, cfg.DBPath)
	healthHandler := NewHealthHandler(cfg.DB)
	if cfg.Scheduler != nil {
		adminHandler.SetJobRunner(cfg.Scheduler)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDev)))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.Timeout(middleware.RequestTimeout))
	r.Use(middleware.RequestPath)

	// Health, robots and file servers sit outside the session
	r.Get(RouteHealth, healthHandler.Health)
	r.Get(RouteRobots, Robots(cfg.IsDev))

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", middleware.StaticCache(middleware.StaticMaxAge)(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))

	if cfg.Attachments != nil {
		r.Handle(service.PublicPrefix+"*", middleware.StaticCache(middleware.UploadMaxAge)(
			http.StripPrefix(service.PublicPrefix, http.FileServer(http.Dir(cfg.Attachments.UploadDir())))))
	}

	r.Group(func(r chi.Router) {
		r.Use(cfg.SessionManager.LoadAndSave)
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(cfg.CSRFAuthKey, cfg.IsDev, cfg.Port)))
		r.Use(middleware.LoadUser(cfg.SessionManager, cfg.DB))

		// Public pages
		r.Get(RouteRoot, frontendHandler.Home)
		r.Get(RouteNotices, frontendHandler.Notices)
		r.Get(RouteNotices+RouteParamID, frontendHandler.Notice)
		r.Get(RouteContacts, frontendHandler.Contacts)

		// Authentication
		r.Get(RouteLogin, authHandler.LoginForm)
		if cfg.LoginProtection != nil {
			r.With(cfg.LoginProtection.Middleware()).Post(RouteLogin, authHandler.Login)
		} else {
			r.Post(RouteLogin, authHandler.Login)
		}
		r.Get(RouteLogout, authHandler.Logout)
		r.Post(RouteLogout, authHandler.Logout)
		r.Get(RouteRegister, authHandler.RegisterForm)
		r.Post(RouteRegister, authHandler.Register)

		// Market: browsing is public, writing needs an account
		r.Get(RouteMarket, marketHandler.List)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			registerCRUD(r, RouteMarket, crudRoutes{
				NewForm:  marketHandler.NewForm,
				Create:   marketHandler.Create,
				EditForm: marketHandler.EditForm,
				Update:   marketHandler.Update,
				Delete:   marketHandler.Delete,
			})
		})
		r.Get(RouteMarket+RouteParamID, marketHandler.Show)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.Events))

			r.Get(RouteDashboard, adminHandler.Dashboard)
			r.Post(RouteAdminJobs+"/{name}/run", adminHandler.RunJob)
			registerCRUD(r, RouteAdminNotices, crudRoutes{
				NewForm:  adminHandler.NewNoticeForm,
				Create:   adminHandler.CreateNotice,
				EditForm: adminHandler.EditNoticeForm,
				Update:   adminHandler.UpdateNotice,
				Delete:   adminHandler.DeleteNotice,
			})
			registerCRUD(r, RouteAdminContacts, crudRoutes{
				NewForm:  adminHandler.NewContactForm,
				Create:   adminHandler.CreateContact,
				EditForm: adminHandler.EditContactForm,
				Update:   adminHandler.UpdateContact,
				Delete:   adminHandler.DeleteContact,
			})
		})
	})

	return r, nil
}
