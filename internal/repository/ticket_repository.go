package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-ticket-shop/internal/model"
)

// TicketRepo provides access to the `tickets` table. Tickets are written
// once at issuance and read back for listings and detail views. All
// timestamps are stored in UTC.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Insert persists a new ticket row. The caller is responsible for
// generating the id and timestamp. The insert is a single atomic row
// write; there is no multi-step mutation to roll back.
func (r *TicketRepo) Insert(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (id, oib, first_name, last_name, movie_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.HolderID, t.FirstName, t.LastName, t.MovieID, t.CreatedAt)
	return err
}

// CountByHolder returns how many tickets exist for the given VATIN/OIB.
// The issuance service uses this to enforce the per-holder cap. Note that
// this read and the subsequent Insert are separate statements with no
// locking between them; concurrent purchases for the same holder can both
// observe a count below the cap.
func (r *TicketRepo) CountByHolder(ctx context.Context, holderID string) (int, error) {
	const q = `SELECT COUNT(*) FROM tickets WHERE oib = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, holderID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountAll returns the total number of tickets ever sold. Displayed on
// the home page only.
func (r *TicketRepo) CountAll(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM tickets`
	var n int
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListByHolder returns every ticket for the given VATIN/OIB joined with
// its movie's title and poster, ordered by creation time descending
// (newest first). When no tickets exist an empty slice is returned; the
// presentation layer decides whether that is a 404.
func (r *TicketRepo) ListByHolder(ctx context.Context, holderID string) ([]model.TicketWithMovie, error) {
	const q = `SELECT t.id, t.oib, t.first_name, t.last_name, t.movie_id, t.created_at,
	                  m.title, m.image_url
	           FROM tickets t
	           JOIN movies m ON m.id = t.movie_id
	           WHERE t.oib = ?
	           ORDER BY t.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]model.TicketWithMovie, 0)
	for rows.Next() {
		var t model.TicketWithMovie
		if err := rows.Scan(
			&t.ID, &t.HolderID, &t.FirstName, &t.LastName, &t.MovieID, &t.CreatedAt,
			&t.MovieTitle, &t.MovieImageURL,
		); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetByID returns a single ticket joined with its movie. It returns
// ErrTicketNotFound when the id does not exist and ErrMovieNotFound when
// the referenced movie is missing from the catalog.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*model.TicketWithMovie, error) {
	const q = `SELECT id, oib, first_name, last_name, movie_id, created_at
	           FROM tickets WHERE id = ?`
	var t model.TicketWithMovie
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.HolderID, &t.FirstName, &t.LastName, &t.MovieID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	const movieQ = `SELECT title, image_url FROM movies WHERE id = ?`
	err = r.db.QueryRowContext(ctx, movieQ, t.MovieID).Scan(&t.MovieTitle, &t.MovieImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &t, nil
}
