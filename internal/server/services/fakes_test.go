package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pandachat/internal/common"
	"github.com/dmitrijs2005/pandachat/internal/dbx"
	"github.com/dmitrijs2005/pandachat/internal/server/auth"
	"github.com/dmitrijs2005/pandachat/internal/server/config"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
	chatsrepo "github.com/dmitrijs2005/pandachat/internal/server/repositories/chats"
	usersrepo "github.com/dmitrijs2005/pandachat/internal/server/repositories/users"
)

// --- in-memory repositories ---

type fakeUsersRepo struct {
	mu    sync.Mutex
	users map[string]models.User
	err   error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.users[u.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.CreatedAt = time.Now()
	f.users[u.Email] = *u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (f *fakeUsersRepo) List(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		u.PasswordHash = ""
		out = append(out, u)
	}
	return out, f.err
}

func (f *fakeUsersRepo) SetAdmin(_ context.Context, email string, isAdmin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsAdmin = isAdmin
	f.users[email] = u
	return nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[email]; !ok {
		return common.ErrorNotFound
	}
	delete(f.users, email)
	return nil
}

func (f *fakeUsersRepo) Count(context.Context) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var admins int64
	for _, u := range f.users {
		if u.IsAdmin {
			admins++
		}
	}
	return int64(len(f.users)), admins, f.err
}

type fakeChatsRepo struct {
	mu    sync.Mutex
	chats []models.Chat
	err   error
}

func (f *fakeChatsRepo) find(owner string, id models.ChatID) int {
	for i, c := range f.chats {
		if c.OwnerEmail == owner && c.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeChatsRepo) ListByOwner(_ context.Context, owner string) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Chat, 0)
	for _, c := range f.chats {
		if c.OwnerEmail == owner {
			out = append(out, c)
		}
	}
	return out, f.err
}

func (f *fakeChatsRepo) ListAll(context.Context) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Chat(nil), f.chats...), f.err
}

func (f *fakeChatsRepo) TitleTakenByOther(_ context.Context, owner, title string, exceptID models.ChatID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, c := range f.chats {
		if c.OwnerEmail == owner && c.Title == title && c.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeChatsRepo) Upsert(_ context.Context, chat *models.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if i := f.find(chat.OwnerEmail, chat.ID); i >= 0 {
		f.chats[i] = *chat
		return nil
	}
	f.chats = append(f.chats, *chat)
	return nil
}

func (f *fakeChatsRepo) Delete(_ context.Context, owner string, id models.ChatID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(owner, id)
	if i < 0 {
		return common.ErrorNotFound
	}
	f.chats = append(f.chats[:i], f.chats[i+1:]...)
	return nil
}

func (f *fakeChatsRepo) DeleteByOwner(_ context.Context, owner string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	kept := f.chats[:0]
	var n int64
	for _, c := range f.chats {
		if c.OwnerEmail == owner {
			n++
			continue
		}
		kept = append(kept, c)
	}
	f.chats = kept
	return n, nil
}

func (f *fakeChatsRepo) DeleteAny(_ context.Context, id models.ChatID, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.chats {
		if c.ID == id && (owner == "" || c.OwnerEmail == owner) {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeChatsRepo) DeleteByRawIDAndTitle(_ context.Context, rawID, title, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.chats {
		if string(c.ID) == rawID && c.Title == title && (owner == "" || c.OwnerEmail == owner) {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeChatsRepo) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.chats)), f.err
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeChatsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.u }
func (m *fakeRepoManager) Chats(dbx.DBTX) chatsrepo.Repository          { return m.c }

type fakeArchiver struct {
	archived   map[string][]models.Chat
	archiveErr error
	presignErr error
}

func (a *fakeArchiver) Archive(_ context.Context, owner string, chats []models.Chat) (string, error) {
	if a.archiveErr != nil {
		return "", a.archiveErr
	}
	if a.archived == nil {
		a.archived = map[string][]models.Chat{}
	}
	key := "archives/" + owner + ".json"
	a.archived[key] = chats
	return key, nil
}

func (a *fakeArchiver) PresignGet(_ context.Context, key string) (string, error) {
	if a.presignErr != nil {
		return "", a.presignErr
	}
	return "https://s3.example.com/" + key + "?sig=1", nil
}

// --- helpers ---

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:             "k",
		TokenValidityDuration: time.Hour,
		AdminCode:             "open-sesame",
		StoreTimeout:          time.Second,
	}
}

func newFakeManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), c: &fakeChatsRepo{}}
}

func newTestUserService(db *sql.DB, rm *fakeRepoManager, archiver Archiver) *UserService {
	cfg := testConfig()
	tokens := auth.NewTokenService([]byte(cfg.SecretKey), cfg.TokenValidityDuration)
	return NewUserService(db, rm, tokens, archiver, cfg, nil)
}
