package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// GatewayKey restricts the gateway to callers holding a shared access key.
// keyHash is a bcrypt hash; an empty hash disables the check. The key rides
// in the X-Gateway-Key header, separate from the platform credentials in the
// request body.
func GatewayKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Gateway-Key")
			if provided == "" {
				http.Error(w, `{"error":"gateway key required"}`, http.StatusForbidden)
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(provided)); err != nil {
				http.Error(w, `{"error":"invalid gateway key"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
