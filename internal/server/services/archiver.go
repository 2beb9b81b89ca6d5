package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pandachat/internal/server/models"
)

// Archiver stores chat snapshots in object storage. A nil Archiver means
// archiving is disabled.
type Archiver interface {
	Archive(ctx context.Context, owner string, chats []models.Chat) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// storeContext bounds a single store call by timeout.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
