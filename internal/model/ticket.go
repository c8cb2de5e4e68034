package model

import "time"

// Ticket represents a row in the `tickets` table. A ticket is created once
// by the issuance service and never updated or deleted afterwards. The
// holder is identified by their VATIN/OIB (a national personal id number),
// not by an application user account, so tickets bought anonymously and
// tickets bought while logged in share the same identity key.
//
// Fields:
//  ID        – UUID primary key.
//  HolderID  – VATIN/OIB of the purchaser (tickets.oib).
//  FirstName – purchaser first name.
//  LastName  – purchaser last name.
//  MovieID   – foreign key into movies.
//  CreatedAt – issuance timestamp (UTC).
type Ticket struct {
	ID        string    // tickets.id (uuid)
	HolderID  string    // tickets.oib
	FirstName string    // tickets.first_name
	LastName  string    // tickets.last_name
	MovieID   uint64    // tickets.movie_id
	CreatedAt time.Time // tickets.created_at
}

// TicketWithMovie joins a ticket with the movie it was bought for. It is
// the shape returned by the listing and detail read paths where the
// movie title and poster are rendered alongside the ticket.
type TicketWithMovie struct {
	Ticket
	MovieTitle    string
	MovieImageURL string
}
