package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/pandachat/internal/common"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
)

const indexHTML = "<h2>Panda Chatbot Backend is running!</h2>"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AdminCode string `json:"admin_code"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	if _, err := s.deps.Users.Register(r.Context(), req.Name, req.Email, req.Password, req.AdminCode); err != nil {
		s.fail(w, r, err, msgUserNotFound)
		return
	}
	writeMessage(w, "User registered successfully")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	res, err := s.deps.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorInvalidCredentials) {
			s.deps.Metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		}
		s.fail(w, r, err, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:   res.Token,
		Name:    res.User.Name,
		Email:   res.User.Email,
		IsAdmin: res.User.IsAdmin,
	})
}

// handleLogout is a no-op; tokens are stateless and dropped client-side.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, "Logged out")
}

type sentimentRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleAnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var req sentimentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	res := s.deps.Classifier.Classify(req.Message)
	s.deps.Metrics.SentimentTotal.WithLabelValues(string(res.Label)).Inc()
	writeJSON(w, http.StatusOK, res)
}

type chatsResponse struct {
	Chats []models.Chat `json:"chats"`
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	chats, err := s.deps.Chats.List(r.Context(), user.Email)
	if err != nil {
		s.fail(w, r, err, msgChatNotFound)
		return
	}
	writeJSON(w, http.StatusOK, chatsResponse{Chats: nonNil(chats)})
}

func (s *Server) handleSaveChat(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var chat models.Chat
	if err := decodeJSON(w, r, &chat); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if chat.ID.IsZero() {
		writeError(w, http.StatusBadRequest, msgMissingChatID)
		return
	}

	suppressed, err := s.deps.Chats.Save(r.Context(), user.Email, &chat)
	if err != nil {
		s.fail(w, r, err, msgChatNotFound)
		return
	}
	if suppressed {
		writeMessage(w, "Welcome Chat already exists")
		return
	}
	writeMessage(w, "Chat saved")
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	if err := s.deps.Chats.Delete(r.Context(), user.Email, r.PathValue("id")); err != nil {
		if errors.Is(err, common.ErrorValidation) {
			writeError(w, http.StatusBadRequest, msgMissingChatID)
			return
		}
		s.fail(w, r, err, msgChatNotFound)
		return
	}
	writeMessage(w, "Chat deleted")
}

type deleteAllResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

func (s *Server) handleDeleteAllChats(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	n, err := s.deps.Chats.DeleteAll(r.Context(), user.Email)
	if err != nil {
		s.fail(w, r, err, msgChatNotFound)
		return
	}
	writeJSON(w, http.StatusOK, deleteAllResponse{Message: fmt.Sprintf("%d chats deleted", n), Count: n})
}

func (s *Server) handleExportChats(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	exp, err := s.deps.Chats.Export(r.Context(), user.Email)
	if err != nil {
		s.fail(w, r, err, msgChatNotFound)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

type usersResponse struct {
	Users []models.User `json:"users"`
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Users.List(r.Context())
	if err != nil {
		s.fail(w, r, err, msgUserNotFound)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Users.Delete(r.Context(), r.PathValue("email")); err != nil {
		s.fail(w, r, err, msgUserNotFound)
		return
	}
	writeMessage(w, "User deleted")
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	raw, ok := fields["is_admin"]
	if !ok {
		writeError(w, http.StatusBadRequest, msgNoValidFields)
		return
	}

	if err := s.deps.Users.SetAdmin(r.Context(), r.PathValue("email"), truthy(raw)); err != nil {
		s.fail(w, r, err, msgUserNotFound)
		return
	}
	writeMessage(w, "User updated")
}

func (s *Server) handleAdminListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.deps.Chats.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, err, msgChatNotFound)
		return
	}
	writeJSON(w, http.StatusOK, chatsResponse{Chats: nonNil(chats)})
}

func (s *Server) handleAdminDeleteChat(w http.ResponseWriter, r *http.Request) {
	byTitle, err := s.deps.Chats.AdminDelete(r.Context(), r.PathValue("id"), r.URL.Query().Get("owner"))
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			writeError(w, http.StatusBadRequest, msgMissingChatID)
			return
		}
		s.fail(w, r, err, msgChatNotFound)
		return
	}
	if byTitle {
		writeMessage(w, "Chat deleted by title")
		return
	}
	writeMessage(w, "Chat deleted")
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Users.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// truthy interprets a loosely typed JSON flag: false, 0, "", null, [] and {}
// are false, everything else is true.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return false
}

func nonNil(chats []models.Chat) []models.Chat {
	if chats == nil {
		return []models.Chat{}
	}
	return chats
}
