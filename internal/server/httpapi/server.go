// Package httpapi exposes the PandaChat JSON API over HTTP: routing, access
// control, request handlers and the ambient middleware chain.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pandachat/internal/logging"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
	"github.com/dmitrijs2005/pandachat/internal/server/sentiment"
	"github.com/dmitrijs2005/pandachat/internal/server/services"
	"github.com/dmitrijs2005/pandachat/internal/server/telemetry"
)

// UserService is the account logic the handlers depend on.
type UserService interface {
	Register(ctx context.Context, name, email, password, adminCode string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetAdmin(ctx context.Context, email string, isAdmin bool) error
	Delete(ctx context.Context, email string) error
	Stats(ctx context.Context) (*models.Stats, error)
}

// ChatService is the chat history logic the handlers depend on.
type ChatService interface {
	List(ctx context.Context, owner string) ([]models.Chat, error)
	Save(ctx context.Context, owner string, chat *models.Chat) (bool, error)
	Delete(ctx context.Context, owner, rawID string) error
	DeleteAll(ctx context.Context, owner string) (int64, error)
	Export(ctx context.Context, owner string) (*services.Export, error)
	ListAll(ctx context.Context) ([]models.Chat, error)
	AdminDelete(ctx context.Context, rawID, owner string) (bool, error)
}

// Classifier labels free text.
type Classifier interface {
	Classify(text string) sentiment.Result
}

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

// Deps bundles the collaborators of the HTTP server.
type Deps struct {
	Users       UserService
	Chats       ChatService
	Classifier  Classifier
	Metrics     *telemetry.Metrics
	Health      HealthFunc
	FrontendURL string
}

const shutdownTimeout = 10 * time.Second

type Server struct {
	address string
	deps    Deps
	logger  logging.Logger
	cors    corsPolicy
}

func NewServer(address string, l logging.Logger, deps Deps) *Server {
	if l == nil {
		l = logging.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NewMetrics()
	}
	return &Server{
		address: address,
		deps:    deps,
		logger:  l.With("module", "http_server"),
		cors:    newCORSPolicy(deps.FrontendURL),
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.routes()
	h = s.cors.middleware(h)
	h = s.observe(h)
	h = s.requestID(h)
	h = s.recoverPanic(h)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
