package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"presetwave/internal/auth"
	"presetwave/services/sessions"
)

// SessionMiddleware decodes the session token (cookie or Bearer header) and
// injects the resulting SessionView into the request context. Requests
// without a valid token proceed unauthenticated; rejecting them is the job
// of the guard and the role middleware, not of decoding.
func SessionMiddleware(sessionsSvc *sessions.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionsSvc.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			view, err := sessionsSvc.Decode(token)
			if err != nil {
				// Malformed, forged or expired tokens fall through silently
				// as "no session"; they are never surfaced as errors.
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), auth.ContextKeySession, view)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth creates middleware that rejects unauthenticated API requests.
func RequireAuth() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Always allow OPTIONS for CORS
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if !auth.SessionFromRequest(r).IsAuthenticated {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin creates middleware that only allows admin sessions. Admin
// handlers additionally re-check the role themselves; the duplication is
// deliberate defense-in-depth, not dead code.
func RequireAdmin() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			view := auth.SessionFromRequest(r)
			if !view.IsAuthenticated {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !view.IsAdmin() {
				writeJSONError(w, http.StatusForbidden, "admin role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
