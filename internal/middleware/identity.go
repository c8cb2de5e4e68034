// Package middleware provides shared request processing: identity
// resolution, response caching and rate limiting.
package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-shop/internal/auth"
)

// HolderCookie is the cookie carrying the signed identifier token that
// re-identifies an anonymous ticket purchaser across requests.
const HolderCookie = "vatin_token"

// identityKey is the context key the resolved identity is stored under.
const identityKey = "identity"

// Identity is the per-request view of "who is making this request". At
// most one of the two sources may be absent: an authenticated profile
// comes from the login session, a holder id from a verified identifier
// token. They are never merged into one another.
type Identity struct {
	User     *auth.Profile // nil when not logged in
	HolderID string        // empty when no valid identifier token was presented
}

// userSource reports the authenticated profile for a request. It is
// satisfied by *auth.Provider and by test fakes.
type userSource interface {
	CurrentUser(echo.Context) *auth.Profile
}

// holderVerifier extracts a holder id from a raw identifier token. It is
// satisfied by *token.Codec and by test fakes.
type holderVerifier interface {
	Verify(string) (string, error)
}

// ResolveIdentity returns middleware that populates the identity context
// on every request before any handler runs. Verification failures of the
// identifier token are swallowed: an invalid or missing token degrades
// to "anonymous, no prior identity", never an error response.
func ResolveIdentity(users userSource, tokens holderVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := Identity{User: users.CurrentUser(c)}
			if ck, err := c.Cookie(HolderCookie); err == nil && ck.Value != "" {
				if holderID, err := tokens.Verify(ck.Value); err == nil {
					id.HolderID = holderID
				}
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// CurrentIdentity returns the identity resolved for this request. When
// the resolution middleware did not run, a fully anonymous identity is
// returned.
func CurrentIdentity(c echo.Context) Identity {
	if id, ok := c.Get(identityKey).(Identity); ok {
		return id
	}
	return Identity{}
}
