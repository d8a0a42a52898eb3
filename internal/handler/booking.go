package handler

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

// BookingHandler exposes the reservation engine.  All routes except
// Availability require JWTAuth.
type BookingHandler struct {
	Svc BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

type bookReq struct {
	// pointer so a missing field is told apart from seat 0
	SeatNumber *int64 `json:"seat_number" validate:"required"`
}

// Book handles POST /v1/shows/:id/book.
func (h *BookingHandler) Book(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: CodeUnauthorized})
	}
	showID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	var req bookReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return badRequest(c, msg)
	}
	seat := *req.SeatNumber
	if seat < 1 || seat > math.MaxUint32 {
		return writeError(c, service.ErrInvalidSeat)
	}

	b, err := h.Svc.BookSeat(c.Request().Context(), userID, showID, uint32(seat))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: CodeUnauthorized})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	if err := h.Svc.CancelBooking(c.Request().Context(), userID, bookingID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"detail": "booking cancelled"})
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: CodeUnauthorized})
	}
	items, err := h.Svc.ListBookings(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Availability handles GET /v1/shows/:id/availability.
func (h *BookingHandler) Availability(c echo.Context) error {
	showID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	a, err := h.Svc.ShowAvailability(c.Request().Context(), showID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
