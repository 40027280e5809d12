package api

import (
	"crypto/hmac"
	"net/http"
	"strings"
)

// authMiddleware validates bearer tokens with a constant-time comparison.
// An empty secret disables authentication, which only happens in tests;
// config validation rejects it for real deployments.
func authMiddleware(secret string, next http.HandlerFunc) http.HandlerFunc {
	if secret == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if !hmac.Equal([]byte(token), []byte(secret)) {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
