// Package users declares the server-side repository contract for user
// accounts and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/pandachat/internal/server/models"
)

// Repository defines persistence operations for users keyed by email.
type Repository interface {
	// Create inserts a user. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByEmail returns the user or common.ErrorNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns all users ordered by registration time.
	List(ctx context.Context) ([]models.User, error)

	// SetAdmin updates the admin flag; common.ErrorNotFound if no such user.
	SetAdmin(ctx context.Context, email string, isAdmin bool) error

	// Delete removes the user; common.ErrorNotFound if no such user.
	Delete(ctx context.Context, email string) error

	// Count returns the number of users and how many of them are admins.
	Count(ctx context.Context) (users int64, admins int64, err error)
}
