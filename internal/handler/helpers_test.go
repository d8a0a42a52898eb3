package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler
	return e
}

// asUser stands in for JWTAuth.
func asUser(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", id)
			return next(c)
		}
	}
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type mockBookingService struct {
	mock.Mock
}

func (m *mockBookingService) BookSeat(ctx context.Context, userID, showID uint64, seat uint32) (model.Booking, error) {
	args := m.Called(ctx, userID, showID, seat)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *mockBookingService) CancelBooking(ctx context.Context, userID, bookingID uint64) error {
	return m.Called(ctx, userID, bookingID).Error(0)
}

func (m *mockBookingService) ListBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.BookingDetail), args.Error(1)
}

func (m *mockBookingService) ShowAvailability(ctx context.Context, showID uint64) (model.Availability, error) {
	args := m.Called(ctx, showID)
	return args.Get(0).(model.Availability), args.Error(1)
}

type fakeCatalog struct {
	movies  map[uint64]model.Movie
	shows   []model.ShowDetail
	lastQ   repository.ShowSearchQuery
	failErr error
}

func (f *fakeCatalog) ListMovies(context.Context) ([]model.Movie, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	out := []model.Movie{}
	for _, m := range f.movies {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeCatalog) GetMovie(_ context.Context, id uint64) (model.Movie, error) {
	m, ok := f.movies[id]
	if !ok {
		return model.Movie{}, repository.ErrMovieNotFound
	}
	return m, nil
}

func (f *fakeCatalog) ListByMovie(_ context.Context, movieID uint64) ([]model.ShowDetail, error) {
	out := []model.ShowDetail{}
	for _, s := range f.shows {
		if s.MovieID == movieID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id uint64) (model.ShowDetail, error) {
	for _, s := range f.shows {
		if s.ID == id {
			return s, nil
		}
	}
	return model.ShowDetail{}, repository.ErrShowNotFound
}

func (f *fakeCatalog) Search(_ context.Context, q repository.ShowSearchQuery) ([]model.ShowDetail, int64, error) {
	f.lastQ = q
	return f.shows, int64(len(f.shows)), nil
}
