// Package handler exposes the HTTP handlers: server-rendered pages for
// visitors and a JSON API for server-to-server callers.
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// clampIndex resolves a requested zero-based index against a sequence of
// length n. Out-of-range input is clamped into [0, n-1] rather than
// rejected, so stale pagination links keep working.
func clampIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// queryIndex reads the ?index= parameter. Absent or unparsable values
// resolve to zero.
func queryIndex(c echo.Context) int {
	i, err := strconv.Atoi(c.QueryParam("index"))
	if err != nil {
		return 0
	}
	return i
}

// renderError renders the shared error page with the given status.
func renderError(c echo.Context, status int, title, message string) error {
	return c.Render(status, "error.html", echo.Map{
		"Title":   title,
		"Message": message,
	})
}
