package chi

import (
	"crypto/subtle"
	"net/http"
)

// HeaderAPIKey carries the ingestion credential on mutating requests.
const HeaderAPIKey = "X-API-Key"

/* RequireAPIKey rejects requests whose X-API-Key header does not match
 * the configured key. GET requests are exempt so the liveness check
 * stays open; the realtime path never passes through this middleware.
 */
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(HeaderAPIKey)
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				writeJSON(w, http.StatusUnauthorized, resultResponse{
					Success: false,
					Message: "invalid or missing API key",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
