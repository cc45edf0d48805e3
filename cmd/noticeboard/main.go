// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/noticeboard/internal/config"
	"github.com/olegiv/noticeboard/internal/handler"
	"github.com/olegiv/noticeboard/internal/logging"
	"github.com/olegiv/noticeboard/internal/middleware"
	"github.com/olegiv/noticeboard/internal/render"
	"github.com/olegiv/noticeboard/internal/scheduler"
	"github.com/olegiv/noticeboard/internal/service"
	"github.com/olegiv/noticeboard/internal/session"
	"github.com/olegiv/noticeboard/internal/store"
	"github.com/olegiv/noticeboard/internal/version"
	"github.com/olegiv/noticeboard/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "noticeboard - community notice board\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_SESSION_SECRET          Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_DB_PATH                 SQLite database path (default: ./data/noticeboard.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_SESSION_DB_PATH         Session database path (default: ./data/sessions.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_SERVER_HOST             Listen host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_SERVER_PORT             Listen port (default: 3000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_ENV                     development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_LOG_LEVEL               debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_UPLOADS_DIR             Attachment directory (default: ./uploads)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_ADMIN_USERNAME          Bootstrap admin username (default: admin)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_ADMIN_PASSWORD          Bootstrap admin password (default: admin123)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_SESSION_LIFETIME        Session lifetime (default: 8h)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_EVENT_RETENTION_DAYS    Days of event log kept (default: 90)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NB_EVENT_CLEANUP_SCHEDULE  Cron expression for event pruning (default: 0 3 * * *)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	slog.Info("starting noticeboard", "version", versionInfo.Version, "commit", versionInfo.GitCommit)

	for _, dir := range []string{filepath.Dir(cfg.DBPath), filepath.Dir(cfg.SessionDBPath), cfg.UploadsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer closeDB(db, "database")

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	sessionDB, err := store.NewSessionDB(cfg.SessionDBPath)
	if err != nil {
		return fmt.Errorf("initializing session database: %w", err)
	}
	defer closeDB(sessionDB, "session database")

	if err := store.MigrateSessions(sessionDB); err != nil {
		return fmt.Errorf("running session migrations: %w", err)
	}
	sessionManager := session.New(sessionDB, cfg.IsDevelopment(), cfg.SessionLifetime)
	slog.Info("session manager initialized", "lifetime", cfg.SessionLifetime.String())

	eventService := service.NewEventService(db)
	attachments := service.NewAttachmentService(cfg.UploadsDir)

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		ThumbURL:       attachments.ThumbURL,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	sched := scheduler.New(eventService, scheduler.Config{
		EventRetention:       cfg.EventRetention(),
		EventCleanupSchedule: cfg.EventCleanupSchedule,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	router, err := handler.NewRouter(handler.RouterConfig{
		DB:              db,
		DBPath:          cfg.DBPath,
		SessionManager:  sessionManager,
		Renderer:        renderer,
		Events:          eventService,
		Attachments:     attachments,
		LoginProtection: loginProtection,
		Scheduler:       sched,
		CSRFAuthKey:     []byte(cfg.SessionSecret),
		IsDev:           cfg.IsDevelopment(),
		Port:            cfg.ServerPort,
		AccessLog:       true,
	})
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // uploads on slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func closeDB(db *sql.DB, name string) {
	if err := db.Close(); err != nil {
		slog.Error("error closing "+name, "error", err)
	}
}
