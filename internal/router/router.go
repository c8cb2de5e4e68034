// Package router wires the HTTP routes to their handlers and the
// per-route middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-shop/internal/auth"
	"github.com/iliyamo/movie-ticket-shop/internal/handler"
)

// RegisterRoutes mounts the routes shared by every deployment.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPages mounts the server-rendered pages and the login flow.
// Browsing stays open; the purchase form and all ticket views require a
// login, which RequireAuth forces via a redirect to /login. A scanned
// verification QR therefore also lands on the login wall first.
func RegisterPages(e *echo.Echo, pages *handler.PageHandler, prov *auth.Provider, purchaseLimit echo.MiddlewareFunc) {
	e.GET("/", pages.Home)

	e.GET("/login", prov.Login)
	e.GET("/callback", prov.Callback)
	e.GET("/logout", prov.Logout)

	e.GET("/buy-ticket/:movieId", pages.BuyTicketForm, prov.RequireAuth())
	e.POST("/buy-ticket/:movieId", pages.BuyTicketSubmit, prov.RequireAuth(), purchaseLimit)

	e.GET("/tickets", pages.TicketsList, prov.RequireAuth())
	e.GET("/ticket/:ticketId", pages.TicketDetail, prov.RequireAuth())
}

// RegisterAPI mounts the JSON endpoints. The catalog is public and
// cached; the purchase endpoint is guarded by the bearer credential and
// rate limited like the form path.
func RegisterAPI(e *echo.Echo, api *handler.APIHandler, guard *auth.APIGuard, cache, purchaseLimit echo.MiddlewareFunc) {
	g := e.Group("/api")
	g.GET("/movies", api.ListMovies, cache)
	g.POST("/tickets", api.CreateTicket, guard.Require(), purchaseLimit)
}
