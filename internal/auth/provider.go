// Package auth wraps the third-party identity provider behind a small
// capability surface: start a login, finish it on the callback, report
// the current user, guard protected routes and log out. The provider's
// redirect protocol itself is externally owned; this package only drives
// it with golang.org/x/oauth2 and keeps the resulting profile in a
// signed session cookie.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"

	"github.com/iliyamo/movie-ticket-shop/internal/config"
)

const (
	sessionCookie  = "session"     // signed JWT holding the logged-in profile
	stateCookie    = "oauth_state" // CSRF state for the redirect flow
	returnToCookie = "return_to"   // where to land after a forced login
	sessionTTL     = 24 * time.Hour
	stateTTL       = 10 * time.Minute
)

// Profile is the authenticated user as reported by the identity
// provider's userinfo endpoint. It is treated as opaque elsewhere; the
// shop never derives a ticket holder id from it.
type Profile struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// Provider drives the identity provider's login/logout redirect flow and
// manages the local session cookie. Construct with New; the zero value
// is unusable.
type Provider struct {
	oauth         oauth2.Config
	issuerURL     string
	baseURL       string
	sessionSecret []byte
	secureCookies bool
	httpClient    *http.Client
	logger        *log.Logger
}

// New builds a Provider from the application config. The provider
// endpoints follow the issuer-rooted layout used by Auth0-style OIDC
// services (/authorize, /oauth/token, /userinfo, /v2/logout).
func New(cfg config.Config, logger *log.Logger) *Provider {
	return &Provider{
		oauth: oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.BaseURL + "/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OIDCIssuerURL + "/authorize",
				TokenURL: cfg.OIDCIssuerURL + "/oauth/token",
			},
		},
		issuerURL:     cfg.OIDCIssuerURL,
		baseURL:       cfg.BaseURL,
		sessionSecret: []byte(cfg.SessionSecret),
		secureCookies: cfg.Env == "prod",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// Login handles GET /login. It stores a random state value in a short
// lived cookie and redirects the visitor to the provider's authorize
// endpoint. An optional ?return_to= query records where to send the
// visitor once the callback completes.
func (p *Provider) Login(c echo.Context) error {
	state, err := randomHex(24)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login unavailable"})
	}
	p.setCookie(c, stateCookie, state, stateTTL)
	if rt := c.QueryParam("return_to"); rt != "" && isLocalPath(rt) {
		p.setCookie(c, returnToCookie, rt, stateTTL)
	}
	return c.Redirect(http.StatusFound, p.oauth.AuthCodeURL(state))
}

// Callback handles GET /callback. It validates the state cookie,
// exchanges the authorization code for a token, fetches the user profile
// and establishes the local session cookie before redirecting back to
// the page that triggered the login.
func (p *Provider) Callback(c echo.Context) error {
	stateC, err := c.Cookie(stateCookie)
	if err != nil || stateC.Value == "" || c.QueryParam("state") != stateC.Value {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid login state"})
	}
	p.clearCookie(c, stateCookie)

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing authorization code"})
	}

	ctx := c.Request().Context()
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		p.logger.Error("code exchange failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	profile, err := p.fetchProfile(ctx, tok)
	if err != nil {
		p.logger.Error("userinfo fetch failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	session, err := p.issueSession(profile)
	if err != nil {
		p.logger.Error("session issue failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	p.setCookie(c, sessionCookie, session, sessionTTL)

	target := "/"
	if rt, err := c.Cookie(returnToCookie); err == nil && isLocalPath(rt.Value) {
		target = rt.Value
		p.clearCookie(c, returnToCookie)
	}
	return c.Redirect(http.StatusFound, target)
}

// Logout handles GET /logout. The local session cookie is destroyed and
// the visitor is delegated to the provider's logout endpoint so the
// upstream session ends as well. The identifier token cookie is left
// alone: it identifies a ticket holder, not a login.
func (p *Provider) Logout(c echo.Context) error {
	p.clearCookie(c, sessionCookie)
	logoutURL := fmt.Sprintf("%s/v2/logout?client_id=%s&returnTo=%s",
		p.issuerURL, url.QueryEscape(p.oauth.ClientID), url.QueryEscape(p.baseURL))
	return c.Redirect(http.StatusFound, logoutURL)
}

// CurrentUser returns the authenticated profile from the session cookie,
// or nil when there is no valid session. Expired or tampered cookies are
// treated the same as an absent one.
func (p *Provider) CurrentUser(c echo.Context) *Profile {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	tok, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.sessionSecret, nil
	})
	if err != nil || !tok.Valid {
		return nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	return &Profile{Subject: sub, Name: name, Email: email}
}

// RequireAuth returns middleware that redirects unauthenticated visitors
// to the login flow, remembering the page they asked for.
func (p *Provider) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p.CurrentUser(c) == nil {
				target := "/login?return_to=" + url.QueryEscape(c.Request().RequestURI)
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}

// issueSession signs a session JWT for the given profile.
func (p *Provider) issueSession(profile *Profile) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   profile.Subject,
		"name":  profile.Name,
		"email": profile.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(sessionTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(p.sessionSecret)
}

// fetchProfile calls the provider's userinfo endpoint with the freshly
// exchanged access token.
func (p *Provider) fetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.issuerURL+"/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	if profile.Subject == "" {
		return nil, errors.New("userinfo response missing sub")
	}
	return &profile, nil
}

func (p *Provider) setCookie(c echo.Context, name, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *Provider) clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// isLocalPath reports whether a return target stays on this site. Only
// absolute paths without a scheme or host are accepted, which blocks
// open-redirect targets like //evil.example.
func isLocalPath(s string) bool {
	return len(s) > 0 && s[0] == '/' && !(len(s) > 1 && s[1] == '/')
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data. It is used for the login state
// value.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
