// Package repository implements the data access layer on top of the MySQL
// store. This file defines sentinel errors shared by the repositories so
// that handlers can map failure scenarios to HTTP responses with
// errors.Is instead of inspecting driver errors.
package repository

import "errors"

// ErrMovieNotFound is returned when a movie id does not exist in the
// catalog. Handlers should translate this into an HTTP 404 response.
var ErrMovieNotFound = errors.New("movie not found")

// ErrTicketNotFound is returned when a ticket id does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrTicketNotFound = errors.New("ticket not found")
