package service

import (
	"errors"

	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// Errors returned by the Coordinator.  All but ErrLockTimeout describe
// a request the client can correct; anything else that comes back is a
// storage or infrastructure failure.
var (
	ErrInvalidSeat      = errors.New("seat number out of range")
	ErrSeatTaken        = errors.New("seat already booked")
	ErrShowFull         = errors.New("show is fully booked")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrLockTimeout      = errors.New("timed out waiting for show lock")

	// shared with the repository so errors.Is matches either name
	ErrBookingNotFound = repository.ErrBookingNotFound
	ErrShowNotFound    = repository.ErrShowNotFound
)

// IsClientError reports whether err is a rejection caused by the request
// itself rather than by the service.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidSeat, ErrSeatTaken, ErrShowFull,
		ErrAlreadyCancelled, ErrBookingNotFound, ErrShowNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
