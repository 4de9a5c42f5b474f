// Package app wires the web front-end together: config, logging, session
// sealing, the account API client, the CSP report store and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quidfin/web/internal/web/apiclient"
	httpweb "github.com/quidfin/web/internal/web/http"
	"github.com/quidfin/web/internal/web/service"
	"github.com/quidfin/web/internal/web/session"
	"github.com/quidfin/web/internal/web/store"
	"github.com/quidfin/web/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the web front-end with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       *store.Store
	sessions *session.Manager

	authService    *service.AuthService
	profileService *service.ProfileService

	server *http.Server
	router *httpweb.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "web",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	sessions, err := session.NewManager([]byte(cfg.SessionSecret), cfg.CookieSecure)
	if err != nil {
		return nil, err
	}
	app.sessions = sessions

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

func (app *Application) initDatabase() error {
	db, err := store.Open(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app.db = db
	return nil
}

func (app *Application) initServices() {
	api := apiclient.New(app.cfg.APIBaseURL)
	app.authService = &service.AuthService{API: api}
	app.profileService = &service.ProfileService{API: api}
}

func (app *Application) initHTTP() {
	app.router = httpweb.NewRouter(app.sessions, app.logger, BuildVersion)
	app.router.AuthService = app.authService
	app.router.ProfileService = app.profileService
	app.router.CSPReports = app.db.CSPReports()
	app.router.RequestTimeout = app.cfg.RequestTimeout
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", app.cfg.Port),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("web front-end starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down web front-end...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("web front-end stopped")
	return nil
}
