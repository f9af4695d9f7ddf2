// Package auth gates access to protected routes with a shared-secret
// bearer token, with an optional JWT mode for OAuth deployments.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Error is an authentication failure carrying the HTTP status the
// caller should render, so handlers never re-derive status codes.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// ErrMissing means the client did not present a bearer credential at
// all: no header, or a scheme other than Bearer. The 401/403 split
// tells "you didn't even try" apart from "you tried and failed", which
// matters for client retry logic.
var ErrMissing = &Error{
	Status:  http.StatusUnauthorized,
	Code:    "unauthorized",
	Message: "Missing or invalid authorization header",
}

// ErrForbidden means a Bearer token was presented but is wrong.
var ErrForbidden = &Error{
	Status:  http.StatusForbidden,
	Code:    "forbidden",
	Message: "Invalid bearer token",
}

// Authenticator validates the Authorization header against a
// configured secret. With noAuth set it allows everything, for
// trusted/local deployments.
type Authenticator struct {
	apiKey    string
	jwtSecret string
	noAuth    bool
}

// New creates an authenticator. When jwtSecret is non-empty the JWT
// verifier takes precedence, falling back to the static API key when
// one is configured.
func New(apiKey, jwtSecret string, noAuth bool) *Authenticator {
	return &Authenticator{
		apiKey:    apiKey,
		jwtSecret: jwtSecret,
		noAuth:    noAuth,
	}
}

// bearerToken extracts the token from an exact "Bearer <token>" header.
// Any other scheme, malformed or missing header yields ok=false.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// Authenticate checks the request credential. It returns the verified
// identity in JWT mode (nil in static-key or no-auth mode) or an *Error
// with the status to render.
func (a *Authenticator) Authenticate(r *http.Request) (*IdentityContext, error) {
	if a.noAuth {
		return nil, nil
	}

	token, ok := bearerToken(r)
	if !ok {
		return nil, ErrMissing
	}

	if a.jwtSecret != "" {
		identity, err := a.verifyJWT(token)
		if err == nil {
			return identity, nil
		}
		if a.apiKey == "" {
			return nil, ErrForbidden
		}
		// Fall through to the static key check.
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(a.apiKey)) == 1 {
		return nil, nil
	}
	return nil, ErrForbidden
}

// Protect is the synchronous guard form of Authenticate.
func (a *Authenticator) Protect(r *http.Request) error {
	_, err := a.Authenticate(r)
	return err
}
