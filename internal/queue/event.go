// Package queue defines message payloads exchanged over the message
// broker, plus the publisher and background consumer for them.
package queue

// TicketIssuedEvent is published after a ticket has been persisted. It
// carries enough information for downstream consumers to log, notify or
// feed analytics without querying the primary database. Publishing is
// best effort: a broker outage never fails a purchase.
type TicketIssuedEvent struct {
	TicketID   string `json:"ticket_id"`
	HolderID   string `json:"holder_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MovieID    uint64 `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	IssuedAt   string `json:"issued_at"`
	Channel    string `json:"channel"` // "web" or "api"
}
