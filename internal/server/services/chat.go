package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pandachat/internal/common"
	"github.com/dmitrijs2005/pandachat/internal/dbx"
	"github.com/dmitrijs2005/pandachat/internal/server/config"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
	"github.com/dmitrijs2005/pandachat/internal/server/repositories/repomanager"
)

// Export describes an archived chat history ready for download.
type Export struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// ChatService manages chat history for owners and administrators.
type ChatService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	archiver     Archiver
	storeTimeout time.Duration
}

// NewChatService constructs a ChatService. archiver may be nil.
func NewChatService(db *sql.DB, m repomanager.RepositoryManager, archiver Archiver, cfg *config.Config) *ChatService {
	return &ChatService{
		db:           db,
		repomanager:  m,
		archiver:     archiver,
		storeTimeout: cfg.StoreTimeout,
	}
}

func (s *ChatService) List(ctx context.Context, owner string) ([]models.Chat, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	return s.repomanager.Chats(s.db).ListByOwner(ctx, owner)
}

// Save upserts the chat for owner. A Welcome Chat whose title is already used
// by another of the owner's chats is not written and suppressed is true.
func (s *ChatService) Save(ctx context.Context, owner string, chat *models.Chat) (suppressed bool, err error) {
	if chat.ID.IsZero() {
		return false, common.ErrorValidation
	}
	chat.OwnerEmail = owner
	chat.Normalize()

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	if !chat.IsWelcome(common.WelcomeChatTitle) {
		if err := s.repomanager.Chats(s.db).Upsert(ctx, chat); err != nil {
			return false, fmt.Errorf("error saving chat: %w", err)
		}
		return false, nil
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Chats(tx)
		taken, err := repo.TitleTakenByOther(ctx, owner, chat.Title, chat.ID)
		if err != nil {
			return err
		}
		if taken {
			suppressed = true
			return nil
		}
		return repo.Upsert(ctx, chat)
	})
	if err != nil {
		return false, fmt.Errorf("error saving chat: %w", err)
	}
	return suppressed, nil
}

// Delete removes one of the owner's chats.
func (s *ChatService) Delete(ctx context.Context, owner, rawID string) error {
	id := models.NormalizeChatID(rawID)
	if id.IsZero() {
		return common.ErrorValidation
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	return s.repomanager.Chats(s.db).Delete(ctx, owner, id)
}

// DeleteAll removes every chat of the owner and returns how many there were.
func (s *ChatService) DeleteAll(ctx context.Context, owner string) (int64, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	return s.repomanager.Chats(s.db).DeleteByOwner(ctx, owner)
}

// Export archives the owner's chats and returns a presigned download link.
func (s *ChatService) Export(ctx context.Context, owner string) (*Export, error) {
	if s.archiver == nil {
		return nil, common.ErrArchiveDisabled
	}

	chats, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	key, err := s.archiver.Archive(ctx, owner, chats)
	if err != nil {
		return nil, fmt.Errorf("error archiving chats: %w", err)
	}
	url, err := s.archiver.PresignGet(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error presigning archive: %w", err)
	}
	return &Export{Key: key, URL: url, Count: len(chats)}, nil
}

func (s *ChatService) ListAll(ctx context.Context) ([]models.Chat, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	return s.repomanager.Chats(s.db).ListAll(ctx)
}

// AdminDelete removes one chat by id regardless of owner, or only the
// owner's when owner is non-empty. When nothing matches, a Welcome Chat
// stored under the raw id (and the same owner filter) is removed instead
// and byTitle is true.
func (s *ChatService) AdminDelete(ctx context.Context, rawID, owner string) (byTitle bool, err error) {
	id := models.NormalizeChatID(rawID)
	if id.IsZero() {
		return false, common.ErrorValidation
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	owner = strings.TrimSpace(owner)
	repo := s.repomanager.Chats(s.db)
	err = repo.DeleteAny(ctx, id, owner)
	if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	if err := repo.DeleteByRawIDAndTitle(ctx, rawID, common.WelcomeChatTitle, owner); err != nil {
		return false, err
	}
	return true, nil
}
