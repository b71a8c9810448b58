// Package server wires the application together: configuration,
// database with migrations, rate limiter, mailer, services, and the
// HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/logging"
	"github.com/dealerdesk/dealerdesk/internal/server/config"
	"github.com/dealerdesk/dealerdesk/internal/server/httpapi"
	"github.com/dealerdesk/dealerdesk/internal/server/mail"
	"github.com/dealerdesk/dealerdesk/internal/server/migrations"
	"github.com/dealerdesk/dealerdesk/internal/server/password"
	"github.com/dealerdesk/dealerdesk/internal/server/ratelimit"
	"github.com/dealerdesk/dealerdesk/internal/server/repositories/users"
	"github.com/dealerdesk/dealerdesk/internal/server/services"
	"github.com/dealerdesk/dealerdesk/internal/server/session"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler *httpapi.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := runMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	limiter := ratelimit.Disabled(logger)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis url error: %w", err)
		}
		limiter = ratelimit.New(redis.NewClient(opts), nil, logger)
	}

	var mailer mail.Mailer = mail.Noop{}
	if cfg.MailAPIKey != "" {
		mailer = mail.NewClient(cfg.MailEndpoint, cfg.MailAPIKey, cfg.MailFrom, cfg.OperatorEmail)
	}

	repo := users.NewPostgresRepository(db)
	passwords := password.New(cfg.BcryptCost)
	issuer := session.NewIssuer(cfg.SessionSecret, cfg.SessionTTL, cfg.Production)
	auth := services.NewAuthService(repo, passwords, issuer, mailer, cfg.SuperAdminSecret, logger)
	handler := httpapi.NewHandler(auth, issuer, limiter, logger)

	return &App{config: cfg, logger: logger, db: db, handler: handler}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler.NewRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return app.db.Close()
}
