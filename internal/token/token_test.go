package token

import (
	"errors"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := NewCodec("test-secret")
	holders := []string{"12345678901", "00000000000", "9", "hr-98765432109"}
	for _, h := range holders {
		raw, err := c.Issue(h)
		if err != nil {
			t.Fatalf("Issue(%q): %v", h, err)
		}
		got, err := c.Verify(raw)
		if err != nil {
			t.Fatalf("Verify(Issue(%q)): %v", h, err)
		}
		if got != h {
			t.Errorf("round trip mismatch: got %q, want %q", got, h)
		}
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	c := NewCodec("test-secret")
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not a jwt", "definitely-not-a-token"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9"},
		{"wrong segment count", "a.b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Verify(tc.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%q) = %v, want ErrInvalidToken", tc.raw, err)
			}
		})
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewCodec("secret-a")
	verifier := NewCodec("secret-b")
	raw, err := issuer.Issue("12345678901")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	// Token with alg "none": structurally a JWT, but carries no signature.
	c := NewCodec("test-secret")
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"vatin": "12345678901"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing with none: %v", err)
	}
	if _, err := c.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(alg=none) = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsMissingHolderClaim(t *testing.T) {
	c := NewCodec("test-secret")
	for name, claims := range map[string]jwt.MapClaims{
		"no vatin":     {"sub": "someone"},
		"empty vatin":  {"vatin": ""},
		"numeric vatin": {"vatin": 12345678901},
	} {
		t.Run(name, func(t *testing.T) {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			raw, err := tok.SignedString([]byte("test-secret"))
			if err != nil {
				t.Fatalf("signing: %v", err)
			}
			if _, err := c.Verify(raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestIssuedTokenHasNoExpiry(t *testing.T) {
	c := NewCodec("test-secret")
	raw, err := c.Issue("12345678901")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// The payload must not carry an exp claim: the credential is
	// destroyed only by cookie expiry or clearing, never server-side.
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if _, found := tok.Claims.(jwt.MapClaims)["exp"]; found {
		t.Error("identifier token unexpectedly carries an exp claim")
	}
}
