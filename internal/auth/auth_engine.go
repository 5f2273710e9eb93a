// Package auth resolves the identity behind an inbound request and serves the
// email and password endpoints under /api/auth.
package auth

import (
	"context"
	"net/http"
	"strings"
)

const (
	BearerPrefix = "Bearer "

	// SessionCookieName carries the session token for browser clients.
	SessionCookieName = "gallery.session_token"
)

// User is an authenticated identity.
type User struct {
	ID    string
	Email string

	// SessionID is empty for identities that do not come from a stored
	// session, such as OIDC bearer tokens.
	SessionID string
}

type AuthEngine interface {

	// AuthenticateRequest inspects the given HTTP request for valid
	// authentication credentials. If valid, it returns a User object; if the
	// request carries no usable credentials it returns nil. An error is
	// returned only if there was an issue processing the authentication.
	AuthenticateRequest(ctx context.Context, rq *http.Request) (*User, error)
}

// bearerToken returns the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < len(BearerPrefix) || !strings.EqualFold(h[:len(BearerPrefix)], BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(BearerPrefix):])
}

// sessionToken returns the session token from the bearer header or, failing
// that, the session cookie.
func sessionToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
