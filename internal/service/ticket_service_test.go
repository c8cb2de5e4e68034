package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/iliyamo/movie-ticket-shop/internal/model"
	"github.com/iliyamo/movie-ticket-shop/internal/queue"
	"github.com/iliyamo/movie-ticket-shop/internal/repository"
)

// memTicketStore is an in-memory TicketStore. The optional barrier makes
// the count-then-insert window observable: every CountByHolder call
// blocks until all expected participants have read their count.
type memTicketStore struct {
	mu      sync.Mutex
	tickets map[string][]model.Ticket
	barrier *sync.WaitGroup
}

func newMemTicketStore() *memTicketStore {
	return &memTicketStore{tickets: make(map[string][]model.Ticket)}
}

func (s *memTicketStore) CountByHolder(_ context.Context, holderID string) (int, error) {
	s.mu.Lock()
	n := len(s.tickets[holderID])
	s.mu.Unlock()
	if s.barrier != nil {
		s.barrier.Done()
		s.barrier.Wait()
	}
	return n, nil
}

func (s *memTicketStore) Insert(_ context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.HolderID] = append(s.tickets[t.HolderID], *t)
	return nil
}

func (s *memTicketStore) total(holderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets[holderID])
}

type memMovieStore struct {
	movies map[uint64]model.Movie
}

func (s memMovieStore) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	m, ok := s.movies[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	return &m, nil
}

func newService(t *testing.T, tickets *memTicketStore) *TicketService {
	t.Helper()
	movies := memMovieStore{movies: map[uint64]model.Movie{
		1: {ID: 1, Title: "Oppenheimer"},
		2: {ID: 2, Title: "Dune"},
		3: {ID: 3, Title: "Arrival"},
	}}
	svc := NewTicketService(tickets, movies, "http://localhost:3000/", log.New(io.Discard))
	svc.publish = func(context.Context, *log.Logger, queue.TicketIssuedEvent) error { return nil }
	return svc
}

func validInput(movieID uint64) PurchaseInput {
	return PurchaseInput{
		VATIN:     "12345678901",
		FirstName: "Ana",
		LastName:  "Horvat",
		MovieID:   movieID,
		Channel:   "web",
	}
}

func TestPurchaseSucceedsUnderCap(t *testing.T) {
	store := newMemTicketStore()
	svc := newService(t, store)

	receipt, err := svc.Purchase(context.Background(), validInput(1))
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if receipt.TicketID == "" {
		t.Error("receipt missing ticket id")
	}
	if want := "http://localhost:3000/ticket/" + receipt.TicketID; receipt.DetailURL != want {
		t.Errorf("DetailURL = %q, want %q", receipt.DetailURL, want)
	}
	if !strings.HasPrefix(receipt.QRCodeDataURL, "data:image/png;base64,") {
		t.Errorf("QRCodeDataURL is not a png data url: %.40q", receipt.QRCodeDataURL)
	}
	if got := store.total("12345678901"); got != 1 {
		t.Errorf("ticket count = %d, want exactly 1", got)
	}
}

func TestPurchaseMissingFields(t *testing.T) {
	store := newMemTicketStore()
	svc := newService(t, store)

	cases := map[string]PurchaseInput{
		"no vatin":        {FirstName: "Ana", LastName: "Horvat", MovieID: 1},
		"no first name":   {VATIN: "12345678901", LastName: "Horvat", MovieID: 1},
		"no last name":    {VATIN: "12345678901", FirstName: "Ana", MovieID: 1},
		"no movie":        {VATIN: "12345678901", FirstName: "Ana", LastName: "Horvat"},
		"whitespace only": {VATIN: "   ", FirstName: "Ana", LastName: "Horvat", MovieID: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Purchase(context.Background(), in); !errors.Is(err, ErrMissingFields) {
				t.Errorf("Purchase = %v, want ErrMissingFields", err)
			}
		})
	}
	if got := store.total("12345678901"); got != 0 {
		t.Errorf("store mutated on rejected input: %d tickets", got)
	}
}

func TestPurchaseUnknownMovie(t *testing.T) {
	store := newMemTicketStore()
	svc := newService(t, store)

	if _, err := svc.Purchase(context.Background(), validInput(999)); !errors.Is(err, repository.ErrMovieNotFound) {
		t.Errorf("Purchase = %v, want ErrMovieNotFound", err)
	}
	if got := store.total("12345678901"); got != 0 {
		t.Errorf("store mutated on unknown movie: %d tickets", got)
	}
}

func TestPurchaseEnforcesHolderCap(t *testing.T) {
	store := newMemTicketStore()
	svc := newService(t, store)
	ctx := context.Background()

	// Three purchases for the same OIB across different movies succeed.
	for _, movieID := range []uint64{1, 2, 3} {
		if _, err := svc.Purchase(ctx, validInput(movieID)); err != nil {
			t.Fatalf("purchase %d: %v", movieID, err)
		}
	}
	// The fourth returns the limit error for any movie and changes nothing.
	if _, err := svc.Purchase(ctx, validInput(2)); !errors.Is(err, ErrTicketLimit) {
		t.Fatalf("fourth purchase = %v, want ErrTicketLimit", err)
	}
	if got := store.total("12345678901"); got != MaxTicketsPerHolder {
		t.Errorf("ticket count = %d, want %d", got, MaxTicketsPerHolder)
	}
}

// TestPurchaseCapRaceIsNotAtomic demonstrates the documented weakness of
// the check-then-insert sequence: two purchases for the same holder that
// read the count concurrently both pass the cap check and jointly exceed
// it. The barrier store makes the interleaving deterministic. If this
// test ever starts failing, the cap has become transactional and the
// documentation should change accordingly.
func TestPurchaseCapRaceIsNotAtomic(t *testing.T) {
	store := newMemTicketStore()
	svc := newService(t, store)
	ctx := context.Background()

	// Seed the holder one below the cap.
	for _, movieID := range []uint64{1, 2} {
		if _, err := svc.Purchase(ctx, validInput(movieID)); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	// Release both counts only once both goroutines have read them.
	barrier := &sync.WaitGroup{}
	barrier.Add(2)
	store.barrier = barrier

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Purchase(ctx, validInput(3))
		}(i)
	}
	wg.Wait()
	store.barrier = nil

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent purchase %d: %v", i, err)
		}
	}
	if got := store.total("12345678901"); got != MaxTicketsPerHolder+1 {
		t.Errorf("ticket count = %d, want %d (both writers pass the stale count check)",
			got, MaxTicketsPerHolder+1)
	}
}
