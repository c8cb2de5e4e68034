package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/iliyamo/movie-ticket-shop/internal/config"
)

// accessTokenSource yields the access token that API callers are
// expected to present. It is an interface so tests can substitute a
// fixed token or a failing source.
type accessTokenSource interface {
	AccessToken() (string, error)
}

// ccSource adapts an oauth2.TokenSource to accessTokenSource. The
// underlying ReuseTokenSource caches the exchanged token until near
// expiry, so not every request triggers a round trip to the provider.
type ccSource struct {
	src oauth2.TokenSource
}

func (s ccSource) AccessToken() (string, error) {
	tok, err := s.src.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// APIGuard protects the server-to-server ticket API. Callers must
// present the bearer access token obtained from the identity provider
// via the client-credentials grant for this service's audience.
type APIGuard struct {
	tokens accessTokenSource
	logger *log.Logger
}

// NewAPIGuard builds an APIGuard performing the client-credentials
// exchange against the configured issuer.
func NewAPIGuard(cfg config.Config, logger *log.Logger) *APIGuard {
	cc := clientcredentials.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		TokenURL:     cfg.OIDCIssuerURL + "/oauth/token",
		EndpointParams: url.Values{
			"audience": {cfg.OIDCAudience},
		},
	}
	return &APIGuard{
		tokens: ccSource{src: cc.TokenSource(context.Background())},
		logger: logger,
	}
}

// Require returns middleware enforcing the bearer credential. Both a
// missing/invalid bearer and a failed credential exchange yield 403; an
// exchange failure is a provider problem, not a server fault, so it is
// never surfaced as a 500.
func (g *APIGuard) Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "missing access token"})
			}
			presented := strings.TrimPrefix(header, "Bearer ")

			expected, err := g.tokens.AccessToken()
			if err != nil {
				g.logger.Error("client credentials exchange failed", "err", err)
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access token verification unavailable"})
			}
			if presented != expected {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid access token"})
			}
			return next(c)
		}
	}
}
