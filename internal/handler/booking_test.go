package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

func newBookingEcho(svc *mockBookingService) *echo.Echo {
	e := newTestEcho()
	h := NewBookingHandler(svc)
	g := e.Group("/v1", asUser(7))
	g.POST("/shows/:id/book", h.Book)
	g.POST("/bookings/:id/cancel", h.Cancel)
	g.GET("/my-bookings", h.MyBookings)
	e.GET("/v1/shows/:id/availability", h.Availability)
	return e
}

func TestBook(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("created", func(t *testing.T) {
		svc := &mockBookingService{}
		svc.On("BookSeat", mock.Anything, uint64(7), uint64(3), uint32(12)).
			Return(model.Booking{ID: 99, UserID: 7, ShowID: 3, SeatNumber: 12, Status: model.BookingBooked, CreatedAt: created}, nil)
		e := newBookingEcho(svc)

		rec := do(t, e, http.MethodPost, "/v1/shows/3/book", `{"seat_number":12}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var b model.Booking
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
		assert.Equal(t, uint64(99), b.ID)
		assert.Equal(t, uint32(12), b.SeatNumber)
		assert.Equal(t, model.BookingBooked, b.Status)
		svc.AssertExpectations(t)
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"seat taken", service.ErrSeatTaken, http.StatusConflict, CodeSeatTaken},
		{"show full", service.ErrShowFull, http.StatusConflict, CodeShowFull},
		{"invalid seat", service.ErrInvalidSeat, http.StatusBadRequest, CodeInvalidSeat},
		{"show not found", fmt.Errorf("book: %w", service.ErrShowNotFound), http.StatusNotFound, CodeShowNotFound},
		{"lock timeout", service.ErrLockTimeout, http.StatusInternalServerError, CodeInternal},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockBookingService{}
			svc.On("BookSeat", mock.Anything, uint64(7), uint64(3), uint32(1)).Return(model.Booking{}, tc.err)
			e := newBookingEcho(svc)

			rec := do(t, e, http.MethodPost, "/v1/shows/3/book", `{"seat_number":1}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Error)
		})
	}

	t.Run("internal errors hide detail", func(t *testing.T) {
		svc := &mockBookingService{}
		svc.On("BookSeat", mock.Anything, uint64(7), uint64(3), uint32(1)).Return(model.Booking{}, errors.New("dial tcp: refused"))
		e := newBookingEcho(svc)

		rec := do(t, e, http.MethodPost, "/v1/shows/3/book", `{"seat_number":1}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, decodeError(t, rec).Detail)
	})

	badInputs := []struct {
		name string
		path string
		body string
		code string
	}{
		{"missing seat", "/v1/shows/3/book", `{}`, CodeInvalidRequest},
		{"malformed body", "/v1/shows/3/book", `{"seat_number":`, CodeInvalidRequest},
		{"non numeric show", "/v1/shows/abc/book", `{"seat_number":1}`, CodeInvalidRequest},
		{"seat zero", "/v1/shows/3/book", `{"seat_number":0}`, CodeInvalidSeat},
		{"negative seat", "/v1/shows/3/book", `{"seat_number":-4}`, CodeInvalidSeat},
		{"seat overflow", "/v1/shows/3/book", `{"seat_number":4294967296}`, CodeInvalidSeat},
	}
	for _, tc := range badInputs {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockBookingService{}
			e := newBookingEcho(svc)

			rec := do(t, e, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Error)
			svc.AssertNotCalled(t, "BookSeat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCancel(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		svc := &mockBookingService{}
		svc.On("CancelBooking", mock.Anything, uint64(7), uint64(42)).Return(nil)
		e := newBookingEcho(svc)

		rec := do(t, e, http.MethodPost, "/v1/bookings/42/cancel", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"detail":"booking cancelled"}`, rec.Body.String())
		svc.AssertExpectations(t)
	})

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", service.ErrBookingNotFound, http.StatusNotFound, CodeNotFound},
		{"already cancelled", service.ErrAlreadyCancelled, http.StatusConflict, CodeAlreadyCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockBookingService{}
			svc.On("CancelBooking", mock.Anything, uint64(7), uint64(42)).Return(tc.err)
			e := newBookingEcho(svc)

			rec := do(t, e, http.MethodPost, "/v1/bookings/42/cancel", "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Error)
		})
	}
}

func TestMyBookings(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("ListBookings", mock.Anything, uint64(7)).Return([]model.BookingDetail{
		{ID: 2, SeatNumber: 4, Status: model.BookingBooked},
		{ID: 1, SeatNumber: 3, Status: model.BookingCancelled},
	}, nil)
	e := newBookingEcho(svc)

	rec := do(t, e, http.MethodGet, "/v1/my-bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Items []model.BookingDetail `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, 2)
	assert.Equal(t, uint64(2), out.Items[0].ID)
	assert.Equal(t, model.BookingCancelled, out.Items[1].Status)
}

func TestAvailability(t *testing.T) {
	svc := &mockBookingService{}
	svc.On("ShowAvailability", mock.Anything, uint64(3)).
		Return(model.Availability{ShowID: 3, TotalSeats: 10, BookedSeats: []uint32{1, 2}, Available: 8}, nil)
	svc.On("ShowAvailability", mock.Anything, uint64(4)).
		Return(model.Availability{}, service.ErrShowNotFound)
	e := newBookingEcho(svc)

	rec := do(t, e, http.MethodGet, "/v1/shows/3/availability", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"show_id":3,"total_seats":10,"booked_seats":[1,2],"available":8}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/v1/shows/4/availability", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeShowNotFound, decodeError(t, rec).Error)
}

func TestUnauthenticatedBooking(t *testing.T) {
	e := newTestEcho()
	h := NewBookingHandler(&mockBookingService{})
	e.POST("/v1/shows/:id/book", h.Book)

	rec := do(t, e, http.MethodPost, "/v1/shows/3/book", `{"seat_number":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, decodeError(t, rec).Error)
}

func TestHTTPErrorHandlerRouteMiss(t *testing.T) {
	e := newTestEcho()
	rec := do(t, e, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rec).Error)
}
