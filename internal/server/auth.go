package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// bearerAuth requires "Authorization: Bearer <token>" on every request it
// wraps. The WebSocket feed is exempt: browsers cannot set headers on
// WebSocket upgrades, so it authenticates with one-time tickets instead.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/events/ws") {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="orgbridge"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Missing Authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="orgbridge"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authorization header must use Bearer scheme")
				return
			}
			provided := strings.TrimPrefix(auth, prefix)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="orgbridge"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GenerateSecureToken returns a random token suitable for ORGBRIDGE_AUTH_TOKEN.
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "orgbridge_" + hex.EncodeToString(b), nil
}
