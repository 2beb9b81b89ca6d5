package httpapi

import "net/http"

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.deps.Metrics.Handler(s.logger))

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /analyze-sentiment", s.handleAnalyzeSentiment)

	mux.Handle("GET /chats", s.RequireUser(s.handleListChats))
	mux.Handle("POST /chats", s.RequireUser(s.handleSaveChat))
	mux.Handle("DELETE /chats", s.RequireUser(s.handleDeleteAllChats))
	mux.Handle("DELETE /chats/{id}", s.RequireUser(s.handleDeleteChat))
	mux.Handle("GET /chats/export", s.RequireUser(s.handleExportChats))

	mux.Handle("GET /admin/users", s.RequireAdmin(s.handleAdminListUsers))
	mux.Handle("DELETE /admin/users/{email}", s.RequireAdmin(s.handleAdminDeleteUser))
	mux.Handle("PATCH /admin/users/{email}", s.RequireAdmin(s.handleAdminUpdateUser))
	mux.Handle("GET /admin/chats", s.RequireAdmin(s.handleAdminListChats))
	mux.Handle("DELETE /admin/chats/{id}", s.RequireAdmin(s.handleAdminDeleteChat))
	mux.Handle("GET /admin/stats", s.RequireAdmin(s.handleAdminStats))

	return jsonFallback(mux)
}

// jsonFallback answers requests no pattern matches with the JSON error body
// instead of the mux's plain-text 404 and 405 replies.
func jsonFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		rec := &headerOnlyWriter{header: http.Header{}, status: http.StatusNotFound}
		h.ServeHTTP(rec, r)

		msg := msgNotFound
		if rec.status == http.StatusMethodNotAllowed {
			msg = msgMethodNotAllowed
			if allow := rec.header.Get("Allow"); allow != "" {
				w.Header().Set("Allow", allow)
			}
		}
		writeError(w, rec.status, msg)
	})
}

// headerOnlyWriter records the status and headers a handler sets and drops
// the body.
type headerOnlyWriter struct {
	header http.Header
	status int
}

func (w *headerOnlyWriter) Header() http.Header { return w.header }

func (w *headerOnlyWriter) Write(b []byte) (int, error) { return len(b), nil }

func (w *headerOnlyWriter) WriteHeader(status int) { w.status = status }
