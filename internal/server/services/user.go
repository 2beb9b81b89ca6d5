// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, token authentication and
// the administrative user operations.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pandachat/internal/common"
	"github.com/dmitrijs2005/pandachat/internal/dbx"
	"github.com/dmitrijs2005/pandachat/internal/logging"
	"github.com/dmitrijs2005/pandachat/internal/server/auth"
	"github.com/dmitrijs2005/pandachat/internal/server/config"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
	"github.com/dmitrijs2005/pandachat/internal/server/repositories/repomanager"
)

// LoginResult is a freshly issued session token and the user it belongs to.
type LoginResult struct {
	Token string
	User  *models.User
}

// UserService provides account operations:
//   - Register / Login / Authenticate for end users
//   - List / SetAdmin / Delete / Stats for administrators
type UserService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	tokens       *auth.TokenService
	archiver     Archiver
	logger       logging.Logger
	adminCode    string
	storeTimeout time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
// archiver may be nil.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService,
	archiver Archiver, cfg *config.Config, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &UserService{
		db:           db,
		repomanager:  m,
		tokens:       tokens,
		archiver:     archiver,
		logger:       logger,
		adminCode:    cfg.AdminCode,
		storeTimeout: cfg.StoreTimeout,
	}
}

// Register creates a user. The admin flag is granted only when adminCode
// matches the configured code.
func (s *UserService) Register(ctx context.Context, name, email, password, adminCode string) (*models.User, error) {
	return s.create(ctx, name, email, password, s.checkAdminCode(adminCode))
}

// CreateAdmin creates a user that holds the admin flag from the first write.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	return s.create(ctx, name, email, password, true)
}

func (s *UserService) create(ctx context.Context, name, email, password string, isAdmin bool) (*models.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, common.ErrorValidation
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the credentials and issues a session token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.ErrorValidation
	}

	user, err := s.Find(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrorInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Authenticate resolves a session token to its user. It returns the token
// errors from auth.TokenService, or common.ErrorNotFound if the account no
// longer exists.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	email, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, email)
}

// Find returns the user or common.ErrorNotFound.
func (s *UserService) Find(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	return s.repomanager.Users(s.db).List(ctx)
}

func (s *UserService) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	return s.repomanager.Users(s.db).SetAdmin(ctx, email, isAdmin)
}

// Delete removes the user's chats and then the user in one transaction. The
// chats are removed even when the user row is already gone, in which case
// common.ErrorNotFound is returned after commit. With an archiver configured
// the chats are snapshotted first.
func (s *UserService) Delete(ctx context.Context, email string) error {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	if s.archiver != nil {
		chats, err := s.repomanager.Chats(s.db).ListByOwner(ctx, email)
		if err != nil {
			return fmt.Errorf("error listing chats: %w", err)
		}
		if len(chats) > 0 {
			key, err := s.archiver.Archive(ctx, email, chats)
			if err != nil {
				return fmt.Errorf("error archiving chats: %w", err)
			}
			s.logger.Info(ctx, "chats archived before user deletion", "email", email, "key", key, "count", len(chats))
		}
	}

	userMissing := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Chats(tx).DeleteByOwner(ctx, email); err != nil {
			return err
		}
		err := s.repomanager.Users(tx).Delete(ctx, email)
		if errors.Is(err, common.ErrorNotFound) {
			userMissing = true
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if userMissing {
		return common.ErrorNotFound
	}
	return nil
}

// Stats returns the user, admin and chat totals.
func (s *UserService) Stats(ctx context.Context) (*models.Stats, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	users, admins, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return nil, err
	}
	chats, err := s.repomanager.Chats(s.db).Count(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Stats{Users: users, Chats: chats, Admins: admins}, nil
}

func (s *UserService) checkAdminCode(candidate string) bool {
	if s.adminCode == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.adminCode), []byte(candidate)) == 1
}
