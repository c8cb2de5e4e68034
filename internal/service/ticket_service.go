// Package service implements the ticket issuance flow: validate the
// purchase input, enforce the per-holder cap, persist the ticket and
// produce the shareable verification reference.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/iliyamo/movie-ticket-shop/internal/model"
	"github.com/iliyamo/movie-ticket-shop/internal/qr"
	"github.com/iliyamo/movie-ticket-shop/internal/queue"
)

// MaxTicketsPerHolder caps how many tickets may exist for one VATIN/OIB
// at issuance time. The check is best effort: the count and the insert
// are separate statements with no transactional isolation, so two
// concurrent purchases can both pass the check (see the service tests).
const MaxTicketsPerHolder = 3

// ErrMissingFields is returned when any of the four purchase fields is
// empty after trimming. Client input error; nothing is persisted.
var ErrMissingFields = errors.New("missing required fields")

// ErrTicketLimit is returned when the holder already has the maximum
// number of tickets. Client input error; nothing is persisted.
var ErrTicketLimit = errors.New("maximum tickets reached for this OIB")

// TicketStore is the slice of the ticket repository the issuance service
// needs. *repository.TicketRepo satisfies it.
type TicketStore interface {
	CountByHolder(ctx context.Context, holderID string) (int, error)
	Insert(ctx context.Context, t *model.Ticket) error
}

// MovieStore resolves movie ids against the catalog.
// *repository.MovieRepo satisfies it.
type MovieStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
}

// PurchaseInput is the validated-by-us purchase request, identical for
// the form and the API path.
type PurchaseInput struct {
	VATIN     string
	FirstName string
	LastName  string
	MovieID   uint64
	Channel   string // "web" or "api", recorded on the issued event
}

// Receipt is returned on a successful purchase. QRCodeDataURL is the
// verification reference: a scannable image encoding DetailURL.
type Receipt struct {
	TicketID      string
	DetailURL     string
	QRCodeDataURL string
}

// TicketService issues tickets. Construct with NewTicketService.
type TicketService struct {
	tickets TicketStore
	movies  MovieStore
	baseURL string
	logger  *log.Logger
	publish func(ctx context.Context, logger *log.Logger, ev queue.TicketIssuedEvent) error
}

// NewTicketService wires the issuance service to its stores. baseURL is
// the externally visible origin used to build detail links embedded in
// QR codes.
func NewTicketService(tickets TicketStore, movies MovieStore, baseURL string, logger *log.Logger) *TicketService {
	return &TicketService{
		tickets: tickets,
		movies:  movies,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		publish: queue.PublishTicketIssued,
	}
}

// Purchase validates the input, enforces the per-holder cap and persists
// a new ticket. Validation failures return ErrMissingFields,
// ErrTicketLimit or the store's ErrMovieNotFound with no state change;
// any other error is an infrastructure failure. The insert is a single
// atomic row write, so no partial ticket can be left behind.
func (s *TicketService) Purchase(ctx context.Context, in PurchaseInput) (*Receipt, error) {
	in.VATIN = strings.TrimSpace(in.VATIN)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.VATIN == "" || in.FirstName == "" || in.LastName == "" || in.MovieID == 0 {
		return nil, ErrMissingFields
	}

	movie, err := s.movies.GetByID(ctx, in.MovieID)
	if err != nil {
		return nil, err
	}

	count, err := s.tickets.CountByHolder(ctx, in.VATIN)
	if err != nil {
		return nil, err
	}
	if count >= MaxTicketsPerHolder {
		return nil, ErrTicketLimit
	}

	ticket := &model.Ticket{
		ID:        uuid.NewString(),
		HolderID:  in.VATIN,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		MovieID:   in.MovieID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, err
	}

	detailURL := s.baseURL + "/ticket/" + ticket.ID
	qrDataURL, err := qr.DataURL(detailURL)
	if err != nil {
		return nil, err
	}

	// Best effort: a broker outage must not fail a purchase that has
	// already been persisted.
	_ = s.publish(ctx, s.logger, queue.TicketIssuedEvent{
		TicketID:   ticket.ID,
		HolderID:   ticket.HolderID,
		FirstName:  ticket.FirstName,
		LastName:   ticket.LastName,
		MovieID:    ticket.MovieID,
		MovieTitle: movie.Title,
		IssuedAt:   ticket.CreatedAt.Format(time.RFC3339),
		Channel:    in.Channel,
	})

	return &Receipt{
		TicketID:      ticket.ID,
		DetailURL:     detailURL,
		QRCodeDataURL: qrDataURL,
	}, nil
}
