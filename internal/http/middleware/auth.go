package middleware

import (
	"errors"
	"net/http"

	"greenhouse/internal/auth"
)

// RequireToken rejects requests that do not carry the configured bearer token.
// Missing or malformed headers yield 401; a well-formed header with the wrong
// token yields 403. The submitted token is never echoed or logged.
func RequireToken(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := authenticator.Verify(r.Header.Get("Authorization"))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrInvalidToken):
				writeDetail(w, http.StatusForbidden, "Invalid token")
			default:
				writeDetail(w, http.StatusUnauthorized, "Missing Bearer token")
			}
		})
	}
}
