package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/pandachat/internal/common"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
)

// UserFromContext returns the user attached by RequireUser or RequireAdmin.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}

// tokenFromRequest reads the raw Authorization value. A "Bearer " prefix is
// accepted too.
func tokenFromRequest(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get(common.AuthorizationHeaderName))
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		v = strings.TrimSpace(v[7:])
	}
	return v
}

// authenticate resolves the request token to a user, writing the 401
// response itself on failure.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := s.deps.Users.Authenticate(r.Context(), tokenFromRequest(r))
	if err == nil {
		return user, true
	}

	reason := "invalid"
	switch {
	case errors.Is(err, common.ErrTokenMissing):
		reason = "missing"
		writeError(w, http.StatusUnauthorized, msgTokenMissing)
	case errors.Is(err, common.ErrTokenExpired):
		reason = "expired"
		writeError(w, http.StatusUnauthorized, msgTokenExpired)
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, msgTokenInvalid)
	case errors.Is(err, common.ErrorNotFound):
		reason = "unknown_user"
		writeError(w, http.StatusUnauthorized, msgUserGone)
	default:
		s.fail(w, r, err, msgUserGone)
		return nil, false
	}
	s.deps.Metrics.AuthFailures.WithLabelValues(reason).Inc()
	return nil, false
}

// RequireUser admits requests carrying a valid token of an existing user.
func (s *Server) RequireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		setStateUser(r.Context(), user.Email)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// RequireAdmin is RequireUser plus the admin flag.
func (s *Server) RequireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		setStateUser(r.Context(), user.Email)
		if !user.IsAdmin {
			s.deps.Metrics.AuthFailures.WithLabelValues("forbidden").Inc()
			writeError(w, http.StatusForbidden, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}
