// Package server initializes and runs the PandaChat backend. It opens the
// database and runs migrations, wires the services, starts the HTTP API and
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/pandachat/internal/logging"
	"github.com/dmitrijs2005/pandachat/internal/server/archive"
	"github.com/dmitrijs2005/pandachat/internal/server/auth"
	"github.com/dmitrijs2005/pandachat/internal/server/config"
	"github.com/dmitrijs2005/pandachat/internal/server/httpapi"
	"github.com/dmitrijs2005/pandachat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pandachat/internal/server/sentiment"
	"github.com/dmitrijs2005/pandachat/internal/server/services"
	"github.com/dmitrijs2005/pandachat/internal/server/telemetry"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}

	newRepositoryManager = repomanager.NewPostgresRepositoryManager

	newArchive = func(ctx context.Context, cfg *config.Config) (services.Archiver, error) {
		return archive.NewS3Archive(ctx, cfg)
	}
)

// OpenDatabase opens the pool, checks connectivity and applies migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migration error: %w", err)
	}
	return db, rm, nil
}

// Services bundles the business services shared by the server and the
// admin tooling.
type Services struct {
	Users *services.UserService
	Chats *services.ChatService
}

// NewServices wires the user and chat services. The chat archive is built
// only when a bucket is configured.
func NewServices(ctx context.Context, db *sql.DB, rm repomanager.RepositoryManager,
	cfg *config.Config, logger logging.Logger) (*Services, error) {
	var archiver services.Archiver
	if cfg.ArchiveEnabled() {
		a, err := newArchive(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		archiver = a
	}

	tokens := auth.NewTokenService([]byte(cfg.SecretKey), cfg.TokenValidityDuration)
	return &Services{
		Users: services.NewUserService(db, rm, tokens, archiver, cfg, logger),
		Chats: services.NewChatService(db, rm, archiver, cfg),
	}, nil
}

type App struct {
	config          *config.Config
	logger          logging.Logger
	logCloser       io.Closer
	db              *sql.DB
	server          *httpapi.Server
	shutdownTracing func(context.Context) error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{Level: c.LogLevel, File: c.LogFile})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger, logCloser: logCloser}

	app.shutdownTracing, err = telemetry.InitTracing(c.TraceFile)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("tracing init error: %w", err)
	}

	app.db, err = app.initStore(ctx)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	return app, nil
}

func (app *App) initStore(ctx context.Context) (*sql.DB, error) {
	db, rm, err := OpenDatabase(ctx, app.config)
	if err != nil {
		return nil, err
	}

	svc, err := NewServices(ctx, db, rm, app.config, app.logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app.server = httpapi.NewServer(app.config.Address, app.logger, httpapi.Deps{
		Users:       svc.Users,
		Chats:       svc.Chats,
		Classifier:  sentiment.NewClassifier(sentiment.NewVaderPolarizer()),
		Metrics:     telemetry.NewMetrics(),
		Health:      db.PingContext,
		FrontendURL: app.config.FrontendURL,
	})
	return db, nil
}

// Run serves until ctx is cancelled or the process receives SIGINT, SIGTERM
// or SIGQUIT, then releases every resource.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "address", app.config.Address,
		"archive", app.config.ArchiveEnabled(), "tracing", app.config.TraceFile != "")

	runErr := app.server.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "server error", "error", runErr)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.logger.Info(closeCtx, "App stopped")
	return errors.Join(runErr, app.Close(closeCtx))
}

// Close releases the database pool, the tracer provider and the log file.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if app.shutdownTracing != nil {
		errs = append(errs, app.shutdownTracing(ctx))
	}
	if app.logCloser != nil {
		errs = append(errs, app.logCloser.Close())
	}
	return errors.Join(errs...)
}

// Exit codes of cmd/server.
const (
	ExitOK = iota
	ExitConfig
	ExitRuntime
)

// Main loads configuration, runs the app and returns the process exit code.
func Main(ctx context.Context) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return ExitConfig
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfig
	}

	if err := app.Run(ctx); err != nil {
		return ExitRuntime
	}
	return ExitOK
}
