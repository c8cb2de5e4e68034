package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-shop/internal/middleware"
	"github.com/iliyamo/movie-ticket-shop/internal/model"
	"github.com/iliyamo/movie-ticket-shop/internal/qr"
	"github.com/iliyamo/movie-ticket-shop/internal/repository"
	"github.com/iliyamo/movie-ticket-shop/internal/service"
)

// movieReader is the read surface of the movie catalog the pages need.
// *repository.MovieRepo satisfies it.
type movieReader interface {
	List(ctx context.Context) ([]model.Movie, error)
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
}

// ticketReader is the read surface of the ticket store the pages need.
// *repository.TicketRepo satisfies it.
type ticketReader interface {
	CountAll(ctx context.Context) (int, error)
	ListByHolder(ctx context.Context, holderID string) ([]model.TicketWithMovie, error)
	GetByID(ctx context.Context, id string) (*model.TicketWithMovie, error)
}

// purchaser issues tickets. *service.TicketService satisfies it.
type purchaser interface {
	Purchase(ctx context.Context, in service.PurchaseInput) (*service.Receipt, error)
}

// tokenIssuer signs identifier tokens. *token.Codec satisfies it.
type tokenIssuer interface {
	Issue(holderID string) (string, error)
}

// PageHandler serves the server-rendered pages: the movie browser, the
// purchase form and the ticket views. It assumes the identity resolution
// middleware has populated the request's identity context.
type PageHandler struct {
	Movies  movieReader
	Tickets ticketReader
	Shop    purchaser
	Tokens  tokenIssuer

	baseURL       string
	secureCookies bool
	logger        *log.Logger
}

// NewPageHandler constructs a PageHandler. All dependencies must be
// non-nil.
func NewPageHandler(movies movieReader, tickets ticketReader, shop purchaser, tokens tokenIssuer, baseURL string, secureCookies bool, logger *log.Logger) *PageHandler {
	if movies == nil || tickets == nil || shop == nil || tokens == nil {
		panic("nil dependency passed to NewPageHandler")
	}
	return &PageHandler{
		Movies:        movies,
		Tickets:       tickets,
		Shop:          shop,
		Tokens:        tokens,
		baseURL:       strings.TrimRight(baseURL, "/"),
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Home handles GET /. It shows one movie at a time from the catalog,
// ordered by release date, with ?index= pagination clamped into range.
// The identity context resolved by the middleware is always the one
// passed to the template.
func (h *PageHandler) Home(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movies, err := h.Movies.List(ctx)
	if err != nil {
		h.logger.Error("listing movies failed", "err", err)
		return renderError(c, http.StatusInternalServerError, "Something went wrong", "Error fetching movies.")
	}
	totalTickets, err := h.Tickets.CountAll(ctx)
	if err != nil {
		h.logger.Error("counting tickets failed", "err", err)
		return renderError(c, http.StatusInternalServerError, "Something went wrong", "Error fetching movies.")
	}

	identity := middleware.CurrentIdentity(c)
	index := clampIndex(queryIndex(c), len(movies))

	var current *model.Movie
	if len(movies) > 0 {
		current = &movies[index]
	}
	return c.Render(http.StatusOK, "home.html", echo.Map{
		"Movie":        current,
		"CurrentIndex": index,
		"PrevIndex":    index - 1,
		"NextIndex":    index + 1,
		"Position":     index + 1,
		"HasNext":      index+1 < len(movies),
		"TotalMovies":  len(movies),
		"TotalTickets": totalTickets,
		"User":         identity.User,
		"VATIN":        identity.HolderID,
	})
}

// BuyTicketForm handles GET /buy-ticket/:movieId. Protected route: the
// auth middleware has already forced a login.
func (h *PageHandler) BuyTicketForm(c echo.Context) error {
	movieID, err := strconv.ParseUint(c.Param("movieId"), 10, 64)
	if err != nil || movieID == 0 {
		return renderError(c, http.StatusBadRequest, "Bad request", "Invalid movie id.")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movie, err := h.Movies.GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return renderError(c, http.StatusNotFound, "Not found", "Movie not found.")
		}
		h.logger.Error("fetching movie failed", "movie_id", movieID, "err", err)
		return renderError(c, http.StatusInternalServerError, "Something went wrong", "Error fetching movie.")
	}

	identity := middleware.CurrentIdentity(c)
	return c.Render(http.StatusOK, "buy-ticket.html", echo.Map{
		"Movie": movie,
		"User":  identity.User,
		"VATIN": identity.HolderID,
	})
}

// BuyTicketSubmit handles POST /buy-ticket/:movieId. On success it
// issues an identifier token for the submitted VATIN, sets it as the
// holder cookie so the purchaser is recognized on later visits, and
// redirects to the ticket listing.
func (h *PageHandler) BuyTicketSubmit(c echo.Context) error {
	movieID, err := strconv.ParseUint(c.Param("movieId"), 10, 64)
	if err != nil || movieID == 0 {
		return renderError(c, http.StatusBadRequest, "Bad request", "Invalid movie id.")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	in := service.PurchaseInput{
		VATIN:     c.FormValue("vatin"),
		FirstName: c.FormValue("firstName"),
		LastName:  c.FormValue("lastName"),
		MovieID:   movieID,
		Channel:   "web",
	}
	receipt, err := h.Shop.Purchase(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			return renderError(c, http.StatusBadRequest, "Bad request", "Missing required fields.")
		case errors.Is(err, service.ErrTicketLimit):
			return renderError(c, http.StatusBadRequest, "Limit reached", "Maximum tickets reached for this OIB.")
		case errors.Is(err, repository.ErrMovieNotFound):
			return renderError(c, http.StatusNotFound, "Not found", "Movie not found.")
		default:
			h.logger.Error("purchase failed", "movie_id", movieID, "err", err)
			return renderError(c, http.StatusInternalServerError, "Something went wrong", "Error creating ticket.")
		}
	}

	holderToken, err := h.Tokens.Issue(strings.TrimSpace(in.VATIN))
	if err != nil {
		// The ticket exists; failing the whole request now would hide a
		// successful purchase. Proceed without the cookie.
		h.logger.Error("issuing identifier token failed", "ticket_id", receipt.TicketID, "err", err)
	} else {
		c.SetCookie(&http.Cookie{
			Name:     middleware.HolderCookie,
			Value:    holderToken,
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour) / time.Second),
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c.Redirect(http.StatusFound, "/tickets")
}

// TicketsList handles GET /tickets. The caller's holder id comes from
// the resolved identity context; without one there is nothing to list.
func (h *PageHandler) TicketsList(c echo.Context) error {
	identity := middleware.CurrentIdentity(c)
	if identity.HolderID == "" {
		return renderError(c, http.StatusBadRequest, "No ticket holder", "VATIN (OIB) not found. Buy a ticket first.")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tickets, err := h.Tickets.ListByHolder(ctx, identity.HolderID)
	if err != nil {
		h.logger.Error("listing tickets failed", "err", err)
		return renderError(c, http.StatusInternalServerError, "Something went wrong", "Error fetching tickets.")
	}
	if len(tickets) == 0 {
		return renderError(c, http.StatusNotFound, "Not found", "No tickets found for this OIB.")
	}

	index := clampIndex(queryIndex(c), len(tickets))
	current := tickets[index]

	qrURL, err := qr.DataURL(h.baseURL + "/ticket/" + current.ID)
	if err != nil {
		h.logger.Error("qr generation failed", "ticket_id", current.ID, "err", err)
		return renderError(c, http.StatusInternalServerError, "Something went wrong", "Error fetching tickets.")
	}

	return c.Render(http.StatusOK, "tickets-list.html", echo.Map{
		"Ticket":       current,
		"QRCodeURL":    qrURL,
		"CurrentIndex": index,
		"PrevIndex":    index - 1,
		"NextIndex":    index + 1,
		"Position":     index + 1,
		"HasNext":      index+1 < len(tickets),
		"TotalTickets": len(tickets),
		"User":         identity.User,
		"VATIN":        identity.HolderID,
	})
}

// TicketDetail handles GET /ticket/:ticketId, the page the verification
// QR code resolves to.
func (h *PageHandler) TicketDetail(c echo.Context) error {
	ticketID := c.Param("ticketId")
	if ticketID == "" {
		return renderError(c, http.StatusBadRequest, "Bad request", "Invalid ticket id.")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ticket, err := h.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			return renderError(c, http.StatusNotFound, "Not found", "Ticket not found.")
		case errors.Is(err, repository.ErrMovieNotFound):
			return renderError(c, http.StatusNotFound, "Not found", "Movie not found.")
		default:
			h.logger.Error("fetching ticket failed", "ticket_id", ticketID, "err", err)
			return renderError(c, http.StatusInternalServerError, "Something went wrong", "Error fetching ticket.")
		}
	}

	qrURL, err := qr.DataURL(h.baseURL + "/ticket/" + ticket.ID)
	if err != nil {
		h.logger.Error("qr generation failed", "ticket_id", ticket.ID, "err", err)
		return renderError(c, http.StatusInternalServerError, "Something went wrong", "Error fetching ticket.")
	}

	identity := middleware.CurrentIdentity(c)
	return c.Render(http.StatusOK, "ticket-details.html", echo.Map{
		"Ticket":    ticket,
		"QRCodeURL": qrURL,
		"User":      identity.User,
		"VATIN":     identity.HolderID,
	})
}
