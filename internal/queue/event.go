// Package queue carries booking events over RabbitMQ: the publisher
// used by the reservation engine and the consumer that keeps an audit
// log of them.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// Event types.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking is created or cancelled.
// It carries enough for downstream consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
	Type       string              `json:"type"`
	BookingID  uint64              `json:"booking_id"`
	UserID     uint64              `json:"user_id"`
	ShowID     uint64              `json:"show_id"`
	SeatNumber uint32              `json:"seat_number"`
	Status     model.BookingStatus `json:"status"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func NewBookingEvent(typ string, b model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		UserID:     b.UserID,
		ShowID:     b.ShowID,
		SeatNumber: b.SeatNumber,
		Status:     b.Status,
		OccurredAt: at.UTC(),
	}
}
