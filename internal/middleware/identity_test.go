package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-shop/internal/auth"
	"github.com/iliyamo/movie-ticket-shop/internal/token"
)

type fakeUserSource struct {
	user *auth.Profile
}

func (f fakeUserSource) CurrentUser(echo.Context) *auth.Profile { return f.user }

// resolve runs the identity middleware over a request and returns the
// identity the downstream handler observed.
func resolve(t *testing.T, users userSource, tokens holderVerifier, cookies ...*http.Cookie) Identity {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()

	var got Identity
	h := ResolveIdentity(users, tokens)(func(c echo.Context) error {
		got = CurrentIdentity(c)
		return c.NoContent(http.StatusOK)
	})
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	return got
}

func TestResolveIdentityFromValidTokenCookie(t *testing.T) {
	codec := token.NewCodec("secret")
	raw, err := codec.Issue("12345678901")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id := resolve(t, fakeUserSource{}, codec, &http.Cookie{Name: HolderCookie, Value: raw})
	if id.HolderID != "12345678901" {
		t.Errorf("HolderID = %q, want 12345678901", id.HolderID)
	}
	if id.User != nil {
		t.Errorf("User = %+v, want nil", id.User)
	}
}

func TestResolveIdentitySwallowsBadTokens(t *testing.T) {
	codec := token.NewCodec("secret")
	forged, err := token.NewCodec("other-secret").Issue("99999999999")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	for name, value := range map[string]string{
		"garbage": "nonsense",
		"forged":  forged,
	} {
		t.Run(name, func(t *testing.T) {
			id := resolve(t, fakeUserSource{}, codec, &http.Cookie{Name: HolderCookie, Value: value})
			if id.HolderID != "" {
				t.Errorf("HolderID = %q, want empty (verification failures degrade to anonymous)", id.HolderID)
			}
		})
	}
}

func TestResolveIdentityWithoutCookieIsAnonymous(t *testing.T) {
	id := resolve(t, fakeUserSource{}, token.NewCodec("secret"))
	if id.User != nil || id.HolderID != "" {
		t.Errorf("identity = %+v, want fully anonymous", id)
	}
}

func TestResolveIdentityCarriesAuthenticatedUser(t *testing.T) {
	codec := token.NewCodec("secret")
	raw, err := codec.Issue("12345678901")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	profile := &auth.Profile{Subject: "auth0|u1", Name: "Ana"}

	id := resolve(t, fakeUserSource{user: profile}, codec, &http.Cookie{Name: HolderCookie, Value: raw})
	if id.User == nil || id.User.Subject != "auth0|u1" {
		t.Errorf("User = %+v, want auth0|u1", id.User)
	}
	// Both sources may be present at once; neither overwrites the other.
	if id.HolderID != "12345678901" {
		t.Errorf("HolderID = %q, want 12345678901", id.HolderID)
	}
}

func TestCurrentIdentityWithoutMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if id := CurrentIdentity(c); id.User != nil || id.HolderID != "" {
		t.Errorf("identity = %+v, want zero value", id)
	}
}
