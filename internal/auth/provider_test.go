package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-shop/internal/config"
)

func testProvider(issuerURL string) *Provider {
	cfg := config.Config{
		Env:              "test",
		BaseURL:          "http://localhost:3000",
		SessionSecret:    "session-secret",
		OIDCIssuerURL:    issuerURL,
		OIDCClientID:     "client-id",
		OIDCClientSecret: "client-secret",
		OIDCAudience:     "https://tickets.example/api",
	}
	return New(cfg, log.New(io.Discard))
}

// fakeIdP serves the three provider endpoints the flow touches.
func fakeIdP(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "idp-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer idp-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Profile{Subject: "auth0|u1", Name: "Ana", Email: "ana@example.com"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginRedirectsToProviderWithState(t *testing.T) {
	p := testProvider("https://idp.example")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/login?return_to=/tickets", nil)
	rec := httptest.NewRecorder()

	if err := p.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parsing redirect target: %v", err)
	}
	if got := loc.Scheme + "://" + loc.Host + loc.Path; got != "https://idp.example/authorize" {
		t.Errorf("redirect target = %q, want authorize endpoint", got)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("authorize URL missing state parameter")
	}

	var foundState, foundReturn bool
	for _, ck := range rec.Result().Cookies() {
		switch ck.Name {
		case stateCookie:
			foundState = true
			if ck.Value != state {
				t.Errorf("state cookie %q does not match URL state %q", ck.Value, state)
			}
		case returnToCookie:
			foundReturn = true
			if ck.Value != "/tickets" {
				t.Errorf("return_to cookie = %q, want /tickets", ck.Value)
			}
		}
	}
	if !foundState || !foundReturn {
		t.Errorf("missing cookies: state=%v return_to=%v", foundState, foundReturn)
	}
}

func TestCallbackEstablishesSession(t *testing.T) {
	idp := fakeIdP(t)
	p := testProvider(idp.URL)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	req.AddCookie(&http.Cookie{Name: returnToCookie, Value: "/tickets"})
	rec := httptest.NewRecorder()

	if err := p.Callback(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Callback: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (body %s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/tickets" {
		t.Errorf("redirect = %q, want /tickets", loc)
	}

	var session string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionCookie && ck.Value != "" {
			session = ck.Value
		}
	}
	if session == "" {
		t.Fatal("no session cookie set")
	}

	// The session cookie must resolve back to the profile on a later request.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sessionCookie, Value: session})
	user := p.CurrentUser(e.NewContext(req2, httptest.NewRecorder()))
	if user == nil {
		t.Fatal("CurrentUser returned nil for a fresh session")
	}
	if user.Subject != "auth0|u1" || user.Email != "ana@example.com" {
		t.Errorf("unexpected profile: %+v", user)
	}
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	p := testProvider("https://idp.example")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/callback?state=attacker&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})
	rec := httptest.NewRecorder()

	if err := p.Callback(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Callback: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCurrentUserIgnoresTamperedCookie(t *testing.T) {
	p := testProvider("https://idp.example")
	other := testProvider("https://idp.example")
	other.sessionSecret = []byte("different-secret")
	forged, err := other.issueSession(&Profile{Subject: "auth0|mallory"})
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}

	e := echo.New()
	for name, value := range map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": forged,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: value})
		if u := p.CurrentUser(e.NewContext(req, httptest.NewRecorder())); u != nil {
			t.Errorf("%s: CurrentUser = %+v, want nil", name, u)
		}
	}
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	p := testProvider("https://idp.example")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/tickets?index=2", nil)
	rec := httptest.NewRecorder()

	h := p.RequireAuth()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?return_to=") {
		t.Errorf("redirect = %q, want login with return_to", loc)
	}
}

func TestIsLocalPath(t *testing.T) {
	cases := map[string]bool{
		"/tickets":            true,
		"/":                   true,
		"":                    false,
		"https://evil.example": false,
		"//evil.example":      false,
		"tickets":             false,
	}
	for in, want := range cases {
		if got := isLocalPath(in); got != want {
			t.Errorf("isLocalPath(%q) = %v, want %v", in, got, want)
		}
	}
}
