package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/middleware"
)

// RegisterBooking registers the booking endpoints under /v1.  All
// routes require a valid JWT.  The write routes also pass through
// limiter, which runs after JWTAuth so it can key on the user.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/shows/:id/book", h.Book, limiter)
	g.POST("/bookings/:id/cancel", h.Cancel, limiter)
	g.GET("/my-bookings", h.MyBookings)
}
