// Package token implements the identifier token codec. An identifier
// token is a signed credential binding a VATIN/OIB to the client that
// bought a ticket anonymously, so the shop can recognize the returning
// purchaser on later requests without a login. The token is stateless:
// no server-side session record exists for it, and a visitor cannot
// claim another person's id without the signing secret.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify for any token that is malformed,
// carries a bad signature, uses an unexpected signing algorithm or lacks
// a holder id claim. Callers must treat it as "no identity", never as a
// request failure.
var ErrInvalidToken = errors.New("invalid identifier token")

// Codec signs and verifies identifier tokens with a process-wide HMAC
// secret. The zero value is unusable; construct with NewCodec.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec signing with the given secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Issue produces a signed token encoding the holder's VATIN/OIB. The
// token carries no expiry: it lives as long as the client keeps the
// cookie, matching the lifetime of the tickets it refers to.
func (c *Codec) Issue(holderID string) (string, error) {
	claims := jwt.MapClaims{
		"vatin": holderID,
		"iat":   jwt.NewNumericDate(time.Now().UTC()),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify checks the signature and structure of a token and returns the
// holder id it encodes. Any failure yields ErrInvalidToken; Verify never
// panics and never lets a parse error escape as something a handler
// would turn into a 5xx.
func (c *Codec) Verify(raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	holderID, ok := claims["vatin"].(string)
	if !ok || holderID == "" {
		return "", ErrInvalidToken
	}
	return holderID, nil
}
