package httpapi

import (
	"net/http"
	"strings"
)

var devOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// corsPolicy allows the configured frontend and the local dev servers, or
// every origin when no frontend is configured.
type corsPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

func newCORSPolicy(frontendURL string) corsPolicy {
	frontendURL = strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if frontendURL == "" {
		return corsPolicy{allowAll: true}
	}
	p := corsPolicy{origins: map[string]struct{}{frontendURL: {}}}
	for _, o := range devOrigins {
		p.origins[o] = struct{}{}
	}
	return p
}

func (p corsPolicy) allowed(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

func (p corsPolicy) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && p.allowed(origin) {
			h := w.Header()
			if p.allowAll {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
