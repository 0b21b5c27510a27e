package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// AdminTokenHeader carries the back-office shared secret.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdmin rejects requests whose X-Admin-Token does not match token.
// An empty token locks the admin routes entirely.
func RequireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(AdminTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "admin token required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
