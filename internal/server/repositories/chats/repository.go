// Package chats declares the server-side repository contract for stored
// chats and its PostgreSQL implementation.
package chats

import (
	"context"

	"github.com/dmitrijs2005/pandachat/internal/server/models"
)

// Repository defines persistence operations for chats keyed by (id, owner).
type Repository interface {
	// ListByOwner returns the owner's chats in insertion order.
	ListByOwner(ctx context.Context, owner string) ([]models.Chat, error)

	// ListAll returns every stored chat in insertion order.
	ListAll(ctx context.Context) ([]models.Chat, error)

	// TitleTakenByOther reports whether the owner already has a chat with the
	// given title stored under an id other than exceptID.
	TitleTakenByOther(ctx context.Context, owner, title string, exceptID models.ChatID) (bool, error)

	// Upsert inserts the chat or replaces the one with the same (id, owner).
	Upsert(ctx context.Context, chat *models.Chat) error

	// Delete removes one of the owner's chats; common.ErrorNotFound if absent.
	Delete(ctx context.Context, owner string, id models.ChatID) error

	// DeleteByOwner removes all of the owner's chats and returns how many.
	DeleteByOwner(ctx context.Context, owner string) (int64, error)

	// DeleteAny removes a single chat with the id regardless of owner, or
	// only the owner's when owner is non-empty; common.ErrorNotFound if absent.
	DeleteAny(ctx context.Context, id models.ChatID, owner string) error

	// DeleteByRawIDAndTitle removes a single chat whose stored id equals rawID
	// verbatim and whose title matches, narrowed to owner when non-empty;
	// common.ErrorNotFound if absent.
	DeleteByRawIDAndTitle(ctx context.Context, rawID, title, owner string) error

	// Count returns the number of stored chats.
	Count(ctx context.Context) (int64, error)
}
