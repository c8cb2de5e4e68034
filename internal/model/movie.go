package model

import "time"

// Movie represents a row in the `movies` table. The catalog is owned by
// an external process; this application only reads it. Release dates and
// poster URLs are displayed on the home page and purchase form.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – movie title.
//  ReleaseDate – theatrical release date (UTC).
//  ImageURL    – poster image location.
type Movie struct {
	ID          uint64    // movies.id
	Title       string    // movies.title
	ReleaseDate time.Time // movies.release_date
	ImageURL    string    // movies.image_url
}
