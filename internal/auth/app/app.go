package app

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/lumonlab/crecheauth/internal/auth/http"
	"github.com/lumonlab/crecheauth/internal/auth/identity"
	"github.com/lumonlab/crecheauth/internal/auth/notify"
	"github.com/lumonlab/crecheauth/internal/auth/obs"
	"github.com/lumonlab/crecheauth/internal/auth/service"
	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/internal/auth/store/drivers/sqlite"
	"github.com/lumonlab/crecheauth/pkg/cryptox"
	"github.com/lumonlab/crecheauth/pkg/jwtx"
	"github.com/lumonlab/crecheauth/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the credential engine together: storage, signing keys,
// services, background workers and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   jwtx.Signer
	verifier jwtx.Verifier

	dispatcher *notify.Dispatcher

	authService     *service.AuthService
	tokenService    *service.TokenService
	mfaService      *service.MFAService
	socialService   *service.SocialService
	passwordService *service.PasswordService
	housekeeping    *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "creche-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)
	obs.Init()

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSigningKeys(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown stops the HTTP server, drains background workers and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()
	app.dispatcher.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initSigningKeys() error {
	key, err := cryptox.LoadOrCreateEd25519Key(app.cfg.SigningKeyFile)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}

	app.signer = jwtx.NewSignerEdDSA(key)
	app.verifier = jwtx.NewVerifierEdDSA(key.Public().(ed25519.PublicKey), app.cfg.Issuer)
	return nil
}

func (app *Application) initServices() {
	app.dispatcher = notify.NewDispatcher(
		notify.StoreAuditSink{Store: app.db},
		notify.LogEmailSender{Logger: app.logger},
		app.logger,
		app.cfg.NotifyBuffer,
	)

	app.tokenService = &service.TokenService{
		Store:      app.db,
		Signer:     app.signer,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Notify: app.dispatcher,
		Issuer: app.cfg.Issuer,
	}

	app.authService = &service.AuthService{
		Store:  app.db,
		Tokens: app.tokenService,
		MFA:    app.mfaService,
		Notify: app.dispatcher,
		Lockout: service.LockoutPolicy{
			Threshold: app.cfg.LockoutThreshold,
			Duration:  app.cfg.LockoutDuration,
		},
	}

	app.socialService = &service.SocialService{
		Store:    app.db,
		Verifier: identity.NewOIDCVerifier(app.cfg.OIDCProviders),
		Tokens:   app.tokenService,
		Notify:   app.dispatcher,
	}

	app.passwordService = &service.PasswordService{
		Store:    app.db,
		Notify:   app.dispatcher,
		ResetTTL: app.cfg.ResetTokenTTL,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.verifier, app.cfg.Issuer, app.db, app.logger)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.MFAService = app.mfaService
	router.SocialService = app.socialService
	router.PasswordService = app.passwordService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
