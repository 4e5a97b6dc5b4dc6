package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/veil-io/veil/internal/requestctx"
)

// AuthMiddleware validates X-Veil-Key or Authorization: Bearer <key> against
// the configured keys and stores the matched key as the caller identity.
func AuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Veil-Key")
			if key == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
				return
			}
			matched := false
			for _, k := range apiKeys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
					matched = true
					break
				}
			}
			if !matched {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
				return
			}
			r = r.WithContext(requestctx.SetCallerID(r.Context(), key))
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware rejects requests exceeding the limiter with 429.
// The caller identity is the authenticated API key when present, otherwise
// the remote address.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := requestctx.CallerID(r.Context())
			if caller == "" {
				caller = r.RemoteAddr
			}
			if !rl.Allow(caller) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
