// internal/api/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/newthinker/quarterly/internal/api/response"
	"github.com/newthinker/quarterly/internal/core"
)

// APIKeyHeader carries the key for the earnings routes. A bearer token in
// Authorization is accepted as well.
const APIKeyHeader = "X-API-Key"

var (
	errKeyMissing = errors.New("no api key in " + APIKeyHeader + " or Authorization")
	errKeyInvalid = errors.New("api key does not match")
)

// providedKey returns the caller's key, preferring X-API-Key.
func providedKey(r *http.Request) string {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// APIKeyAuth guards the earnings routes with a shared key.
// If apiKey is empty, authentication is disabled.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := providedKey(r)
			if key == "" {
				response.Fail(w, core.WrapError(core.ErrUnauthorized, errKeyMissing))
				return
			}
			// Constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				response.Fail(w, core.WrapError(core.ErrUnauthorized, errKeyInvalid))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
