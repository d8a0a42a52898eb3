package model

import "time"

// BookingStatus is the lifecycle state of a booking.  The only
// transition is BOOKED -> CANCELLED; CANCELLED is terminal.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "BOOKED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	return s == BookingBooked || s == BookingCancelled
}

// Booking records a user's claim on one seat of one show.  Rows are
// never deleted: cancelling flips Status and keeps the history, and
// re-booking a freed seat inserts a new row.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owner of the booking.
//  ShowID     – show being booked.
//  SeatNumber – seat within the show, 1..Show.TotalSeats.
//  Status     – BOOKED or CANCELLED.
//  CreatedAt  – creation timestamp (UTC).
type Booking struct {
	ID         uint64        `db:"id" json:"id"`                   // bookings.id
	UserID     uint64        `db:"user_id" json:"user_id"`         // bookings.user_id
	ShowID     uint64        `db:"show_id" json:"show_id"`         // bookings.show_id
	SeatNumber uint32        `db:"seat_number" json:"seat_number"` // bookings.seat_number
	Status     BookingStatus `db:"status" json:"status"`           // bookings.status
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`   // bookings.created_at
}

// IsActive reports whether the booking currently occupies its seat.
func (b Booking) IsActive() bool { return b.Status == BookingBooked }

// BookingDetail is a booking with its show and movie, used for the
// "my bookings" listing.
type BookingDetail struct {
	ID         uint64        `json:"id"`
	SeatNumber uint32        `json:"seat_number"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	Show       ShowDetail    `json:"show"`
}
