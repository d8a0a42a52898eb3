package handler

import (
	"context"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// BookingService is implemented by service.Coordinator.
type BookingService interface {
	BookSeat(ctx context.Context, userID, showID uint64, seat uint32) (model.Booking, error)
	CancelBooking(ctx context.Context, userID, bookingID uint64) error
	ListBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ShowAvailability(ctx context.Context, showID uint64) (model.Availability, error)
}

// CatalogStore is implemented by repository.ShowRepo.
type CatalogStore interface {
	ListMovies(ctx context.Context) ([]model.Movie, error)
	GetMovie(ctx context.Context, id uint64) (model.Movie, error)
	ListByMovie(ctx context.Context, movieID uint64) ([]model.ShowDetail, error)
	GetByID(ctx context.Context, id uint64) (model.ShowDetail, error)
	Search(ctx context.Context, q repository.ShowSearchQuery) ([]model.ShowDetail, int64, error)
}

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, email, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}
