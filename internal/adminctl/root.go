// Package adminctl implements chatadmin, the operator command line for a
// PandaChat deployment. It talks to the database directly through the same
// configuration, repositories and services as the server, which makes it the
// way to bootstrap the first administrator.
package adminctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/pandachat/internal/logging"
	"github.com/dmitrijs2005/pandachat/internal/server"
	"github.com/dmitrijs2005/pandachat/internal/server/config"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is reported by --version. Overridden at link time with
// -ldflags "-X github.com/dmitrijs2005/pandachat/internal/adminctl.Version=...".
var Version = "dev"

// Backend is the part of the user service the admin commands drive.
type Backend interface {
	CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error)
	SetAdmin(ctx context.Context, email string, isAdmin bool) error
	Stats(ctx context.Context) (*models.Stats, error)
}

// Connector opens a Backend for cfg. The returned closer releases the
// underlying resources.
type Connector func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, io.Closer, error)

// Connect opens the database, applies pending migrations and wires the
// user service.
func Connect(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, io.Closer, error) {
	db, rm, err := server.OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := server.NewServices(ctx, db, rm, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return svc.Users, db, nil
}

type options struct {
	configPath string
	dsn        string
	logLevel   string
	timeout    time.Duration
}

type runner struct {
	opts    options
	connect Connector
	lookup  func(string) (string, bool)
}

// NewRootCommand builds the chatadmin command tree. lookup resolves
// environment variables and is usually os.LookupEnv.
func NewRootCommand(connect Connector, lookup func(string) (string, bool)) *cobra.Command {
	r := &runner{connect: connect, lookup: lookup}

	root := &cobra.Command{
		Use:           "chatadmin",
		Short:         "Administer a PandaChat deployment",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&r.opts.configPath, "config", "c", "", "JSON or YAML config file")
	pf.StringVarP(&r.opts.dsn, "dsn", "d", "", "PostgreSQL DSN (overrides config and DATABASE_DSN)")
	pf.StringVar(&r.opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")
	pf.DurationVar(&r.opts.timeout, "timeout", 30*time.Second, "overall operation timeout")

	root.AddCommand(
		r.newCreateAdminCommand(),
		r.newRoleCommand("promote", "Grant the admin flag to a user", true),
		r.newRoleCommand("demote", "Revoke the admin flag from a user", false),
		r.newStatsCommand(),
		r.newMigrateCommand(),
	)
	return root
}

func (r *runner) loadConfig() (*config.Config, error) {
	var args []string
	if r.opts.configPath != "" {
		args = []string{"-c", r.opts.configPath}
	}
	cfg, err := config.Load(args, r.lookup)
	if err != nil {
		return nil, err
	}
	if r.opts.dsn != "" {
		cfg.DatabaseDSN = r.opts.dsn
	}
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set (--dsn or DATABASE_DSN)")
	}
	return cfg, nil
}

// withBackend loads configuration, connects and runs fn under the
// command's timeout.
func (r *runner) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b Backend) error) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	level, err := logging.ParseLevel(r.opts.logLevel)
	if err != nil {
		return err
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithTimeout(cmd.Context(), r.opts.timeout)
	defer cancel()

	b, closer, err := r.connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			logger.Warn(ctx, "close error", "error", cerr)
		}
	}()
	return fn(ctx, b)
}

// Main runs chatadmin with the process arguments and returns the exit code.
func Main(ctx context.Context) int {
	_ = godotenv.Load()

	root := NewRootCommand(Connect, os.LookupEnv)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
