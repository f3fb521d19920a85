package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrMissingToken indicates an absent or empty Authorization header.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrMalformedHeader indicates a header without the Bearer scheme.
	ErrMalformedHeader = errors.New("malformed authorization header")
	// ErrInvalidToken indicates a well-formed header carrying the wrong token.
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator verifies the shared API token presented in Authorization headers.
// The expected token is injected at construction time so tests can substitute
// their own secret.
type Authenticator struct {
	secret []byte
}

// New returns an Authenticator for the configured token.
func New(token string) *Authenticator {
	return &Authenticator{secret: []byte(token)}
}

// Verify checks a raw Authorization header value against the configured token.
// The scheme keyword is matched case-insensitively and surrounding whitespace
// on the token portion is ignored. The token comparison runs in constant time
// so the check does not leak how many leading bytes matched.
func (a *Authenticator) Verify(header string) error {
	if strings.TrimSpace(header) == "" {
		return ErrMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ErrMalformedHeader
	}

	token := strings.TrimSpace(parts[1])
	if subtle.ConstantTimeCompare([]byte(token), a.secret) != 1 {
		return ErrInvalidToken
	}

	return nil
}
