package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: liveness,
// readiness and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers signup and login under /v1/auth and the
// authenticated profile endpoint at /v1/auth/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated catalogue endpoints.
// cache wraps each catalogue route; pass a no-op middleware to disable
// it.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, b *handler.BookingHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/movies", p.ListMovies, cache)
	g.GET("/movies/:id/shows", p.MovieShows, cache)
	g.GET("/shows", p.SearchShows, cache)
	g.GET("/shows/:id", p.GetShow, cache)

	// availability changes with every booking, so it bypasses the cache
	e.GET("/v1/shows/:id/availability", b.Availability)
}
