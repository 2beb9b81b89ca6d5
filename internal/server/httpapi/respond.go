package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pandachat/internal/common"
)

// Client-facing messages.
const (
	msgTokenMissing   = "Token is missing!"
	msgTokenInvalid   = "Token is invalid!"
	msgTokenExpired   = "Token has expired!"
	msgUserGone       = "User not found!"
	msgAdminRequired  = "Admin access required!"
	msgMissingFields  = "Missing fields"
	msgEmailTaken     = "Email already registered"
	msgBadCredentials = "Invalid credentials"
	msgInvalidJSON    = "Invalid JSON body"
	msgMissingChatID  = "Missing chat id"
	msgNoValidFields  = "No valid fields to update"
	msgChatNotFound   = "Chat not found"
	msgUserNotFound   = "User not found"
	msgExportDisabled = "Chat export is not configured"
	msgInternal       = "Internal server error"

	msgNotFound         = "Not found"
	msgMethodNotAllowed = "Method not allowed"
)

const maxBodyBytes = 4 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON value from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// fail maps a service error onto a status and client message. notFound is
// the message used for common.ErrorNotFound.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusBadRequest, msgEmailTaken)
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, msgMissingFields)
	case errors.Is(err, common.ErrorInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgBadCredentials)
	case errors.Is(err, common.ErrTokenMissing):
		writeError(w, http.StatusUnauthorized, msgTokenMissing)
	case errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, msgTokenExpired)
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, msgTokenInvalid)
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, common.ErrArchiveDisabled):
		writeError(w, http.StatusServiceUnavailable, msgExportDisabled)
	default:
		s.logger.Error(r.Context(), "request failed", "error", err, "path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
