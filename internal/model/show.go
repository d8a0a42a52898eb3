package model

import "time"

// Movie is a catalogue entry.  Movies are owned by the catalogue
// collaborator; the booking engine only reads them to decorate
// booking listings.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – display title.
//  DurationMinutes – running time in minutes.
type Movie struct {
	ID              uint64 `db:"id" json:"id"`                             // movies.id
	Title           string `db:"title" json:"title"`                       // movies.title
	DurationMinutes uint32 `db:"duration_minutes" json:"duration_minutes"` // movies.duration_minutes
}

// Show represents a scheduled screening of a movie on a screen.  The
// number of seats is fixed when the show is created and seats are
// numbered 1..TotalSeats.  The booking engine reads TotalSeats but
// never changes it.
//
// Fields:
//  ID         – primary key identifier.
//  MovieID    – movie being screened.
//  ScreenName – screen or auditorium label.
//  StartsAt   – when the show begins (UTC).
//  TotalSeats – seat capacity, always positive.
type Show struct {
	ID         uint64    `db:"id" json:"id"`                   // shows.id
	MovieID    uint64    `db:"movie_id" json:"movie_id"`       // shows.movie_id
	ScreenName string    `db:"screen_name" json:"screen_name"` // shows.screen_name
	StartsAt   time.Time `db:"starts_at" json:"starts_at"`     // shows.starts_at
	TotalSeats uint32    `db:"total_seats" json:"total_seats"` // shows.total_seats
}

// HasSeat reports whether n is a valid seat number for the show.
func (s Show) HasSeat(n uint32) bool {
	return n >= 1 && n <= s.TotalSeats
}

// ShowDetail is a show together with its movie, as returned by the
// catalogue listing endpoints and embedded in booking listings.
type ShowDetail struct {
	Show
	Movie Movie `json:"movie"`
}

// Availability is the derived seat availability of a show.  It is
// always computed from the BOOKED rows in the bookings table; no
// counter is persisted.
type Availability struct {
	ShowID      uint64   `json:"show_id"`
	TotalSeats  uint32   `json:"total_seats"`
	BookedSeats []uint32 `json:"booked_seats"`
	Available   uint32   `json:"available"`
}

// NewAvailability builds an Availability from a show and the seat
// numbers currently held by BOOKED bookings.
func NewAvailability(s Show, booked []uint32) Availability {
	if booked == nil {
		booked = []uint32{}
	}
	avail := uint32(0)
	if n := uint32(len(booked)); n < s.TotalSeats {
		avail = s.TotalSeats - n
	}
	return Availability{
		ShowID:      s.ID,
		TotalSeats:  s.TotalSeats,
		BookedSeats: booked,
		Available:   avail,
	}
}
