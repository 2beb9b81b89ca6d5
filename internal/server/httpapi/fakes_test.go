package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/pandachat/internal/common"
	"github.com/dmitrijs2005/pandachat/internal/server/auth"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
	"github.com/dmitrijs2005/pandachat/internal/server/sentiment"
	"github.com/dmitrijs2005/pandachat/internal/server/services"
	"github.com/dmitrijs2005/pandachat/internal/server/telemetry"
)

type fakeUsers struct {
	mu        sync.Mutex
	tokens    *auth.TokenService
	users     map[string]*models.User
	passwords map[string]string
	deleteErr error
	listErr   error
}

func newFakeUsers(tokens *auth.TokenService) *fakeUsers {
	return &fakeUsers{tokens: tokens, users: map[string]*models.User{}, passwords: map[string]string{}}
}

func (f *fakeUsers) add(name, email, password string, admin bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = &models.User{Name: name, Email: email, IsAdmin: admin, CreatedAt: time.Now()}
	f.passwords[email] = password
}

func (f *fakeUsers) Register(_ context.Context, name, email, password, adminCode string) (*models.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, common.ErrorValidation
	}
	f.mu.Lock()
	_, exists := f.users[email]
	f.mu.Unlock()
	if exists {
		return nil, common.ErrorAlreadyExists
	}
	f.add(name, email, password, adminCode == "letmein")
	return f.users[email], nil
}

func (f *fakeUsers) Login(_ context.Context, email, password string) (*services.LoginResult, error) {
	if email == "" || password == "" {
		return nil, common.ErrorValidation
	}
	f.mu.Lock()
	u, ok := f.users[email]
	pw := f.passwords[email]
	f.mu.Unlock()
	if !ok || pw != password {
		return nil, common.ErrorInvalidCredentials
	}
	tok, err := f.tokens.Issue(email)
	if err != nil {
		return nil, err
	}
	return &services.LoginResult{Token: tok, User: u}, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, token string) (*models.User, error) {
	email, err := f.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsers) List(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) SetAdmin(_ context.Context, email string, isAdmin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsAdmin = isAdmin
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.users[email]; !ok {
		return common.ErrorNotFound
	}
	delete(f.users, email)
	return nil
}

func (f *fakeUsers) Stats(context.Context) (*models.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &models.Stats{Users: int64(len(f.users))}
	for _, u := range f.users {
		if u.IsAdmin {
			st.Admins++
		}
	}
	return st, nil
}

type fakeChats struct {
	mu       sync.Mutex
	chats    []models.Chat
	exporter bool
}

func (f *fakeChats) List(_ context.Context, owner string) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Chat
	for _, c := range f.chats {
		if c.OwnerEmail == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChats) Save(_ context.Context, owner string, chat *models.Chat) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat.OwnerEmail = owner
	chat.Normalize()
	if chat.IsWelcome(common.WelcomeChatTitle) {
		for _, c := range f.chats {
			if c.OwnerEmail == owner && c.Title == chat.Title && c.ID != chat.ID {
				return true, nil
			}
		}
	}
	for i, c := range f.chats {
		if c.OwnerEmail == owner && c.ID == chat.ID {
			f.chats[i] = *chat
			return false, nil
		}
	}
	f.chats = append(f.chats, *chat)
	return false, nil
}

func (f *fakeChats) Delete(_ context.Context, owner, rawID string) error {
	id := models.NormalizeChatID(rawID)
	if id.IsZero() {
		return common.ErrorValidation
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.chats {
		if c.OwnerEmail == owner && c.ID == id {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeChats) DeleteAll(_ context.Context, owner string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

func (f *fakeChats) Export(_ context.Context, owner string) (*services.Export, error) {
	if !f.exporter {
		return nil, common.ErrArchiveDisabled
	}
	chats, _ := f.List(context.Background(), owner)
	return &services.Export{Key: "archives/k.json", URL: "https://s3/archives/k.json", Count: len(chats)}, nil
}

func (f *fakeChats) ListAll(context.Context) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Chat(nil), f.chats...), nil
}

func (f *fakeChats) AdminDelete(_ context.Context, rawID, owner string) (bool, error) {
	id := models.NormalizeChatID(rawID)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.chats {
		if c.ID == id && (owner == "" || c.OwnerEmail == owner) {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			return false, nil
		}
	}
	for i, c := range f.chats {
		if string(c.ID) == rawID && c.Title == common.WelcomeChatTitle {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			return true, nil
		}
	}
	return false, common.ErrorNotFound
}

type fixedPolarizer float64

func (p fixedPolarizer) Polarity(string) float64 { return float64(p) }

type testEnv struct {
	srv     *Server
	handler http.Handler
	tokens  *auth.TokenService
	users   *fakeUsers
	chats   *fakeChats
	metrics *telemetry.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	env := &testEnv{
		tokens:  tokens,
		users:   newFakeUsers(tokens),
		chats:   &fakeChats{},
		metrics: telemetry.NewMetrics(),
	}
	env.srv = NewServer("127.0.0.1:0", nil, Deps{
		Users:      env.users,
		Chats:      env.chats,
		Classifier: sentiment.NewClassifier(fixedPolarizer(0.5)),
		Metrics:    env.metrics,
	})
	env.handler = env.srv.Handler()
	return env
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := e.tokens.Issue(email)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}
