package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-shop/internal/repository"
	"github.com/iliyamo/movie-ticket-shop/internal/service"
)

// APIHandler serves the JSON endpoints: the server-to-server purchase
// API (guarded by the bearer credential) and the public movie catalog.
type APIHandler struct {
	Movies movieReader
	Shop   purchaser

	logger *log.Logger
}

// NewAPIHandler constructs an APIHandler. All dependencies must be
// non-nil.
func NewAPIHandler(movies movieReader, shop purchaser, logger *log.Logger) *APIHandler {
	if movies == nil || shop == nil {
		panic("nil dependency passed to NewAPIHandler")
	}
	return &APIHandler{Movies: movies, Shop: shop, logger: logger}
}

type createTicketReq struct {
	VATIN     string `json:"vatin"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	MovieID   uint64 `json:"movieId"`
}

type createTicketResp struct {
	TicketID  string `json:"ticketId"`
	QRCodeURL string `json:"qrCodeUrl"`
}

// CreateTicket handles POST /api/tickets. The bearer guard middleware
// has already authenticated the caller. Unlike the form path, no
// identifier token cookie is involved: the receipt is returned directly
// as structured data.
func (h *APIHandler) CreateTicket(c echo.Context) error {
	var req createTicketReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	receipt, err := h.Shop.Purchase(ctx, service.PurchaseInput{
		VATIN:     req.VATIN,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		MovieID:   req.MovieID,
		Channel:   "api",
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Missing required fields: 'vatin', 'firstName', 'lastName', or 'movieId'.",
			})
		case errors.Is(err, service.ErrTicketLimit):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Maximum tickets reached for this OIB"})
		case errors.Is(err, repository.ErrMovieNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		default:
			h.logger.Error("api purchase failed", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error creating ticket"})
		}
	}

	return c.JSON(http.StatusCreated, createTicketResp{
		TicketID:  receipt.TicketID,
		QRCodeURL: receipt.QRCodeDataURL,
	})
}

// apiMovie is the catalog entry shape exposed to API consumers.
type apiMovie struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	ReleaseDate time.Time `json:"release_date"`
	ImageURL    string    `json:"image_url"`
}

// ListMovies handles GET /api/movies. The response is identity-free and
// served through the Redis response cache.
func (h *APIHandler) ListMovies(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movies, err := h.Movies.List(ctx)
	if err != nil {
		h.logger.Error("listing movies failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error fetching movies"})
	}

	out := make([]apiMovie, 0, len(movies))
	for _, m := range movies {
		out = append(out, apiMovie{
			ID:          m.ID,
			Title:       m.Title,
			ReleaseDate: m.ReleaseDate,
			ImageURL:    m.ImageURL,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": out})
}
