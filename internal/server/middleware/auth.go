package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireToken returns middleware that validates a shared secret carried in
// the named query parameter. If token is empty, the guard is disabled and
// all requests pass through.
func RequireToken(param, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.URL.Query().Get(param)
			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeUnauthorized(w, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"ok":false,"error":"` + msg + `"}`))
}
