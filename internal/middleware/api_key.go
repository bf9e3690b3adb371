package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	pkghttp "github.com/BradenHooton/assistiva/pkg/http"
)

// APIKeyHeader carries the administrator key on account management requests.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key header does not match key.
// Both sides are hashed first so the comparison time does not depend on the
// presented key length.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	expected := sha256.Sum256([]byte(key))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(APIKeyHeader)
			if presented == "" {
				pkghttp.WriteUnauthorized(w, "missing API key")
				return
			}

			got := sha256.Sum256([]byte(presented))
			if subtle.ConstantTimeCompare(got[:], expected[:]) != 1 {
				pkghttp.WriteUnauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
