package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/handler"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newTestRouter(db handler.Pinger) *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	RegisterRoutes(e, db)
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: "s"}, nil), "s")
	bh := handler.NewBookingHandler(nil)
	RegisterPublic(e, handler.NewCatalogHandler(nil), bh, passThrough)
	RegisterBooking(e, bh, "s", passThrough)
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newTestRouter(pinger{})

	var got []string
	for _, r := range e.Routes() {
		if strings.HasSuffix(r.Path, "*") {
			continue
		}
		got = append(got, r.Method+" "+r.Path)
	}
	sort.Strings(got)

	for _, want := range []string{
		"GET /healthz",
		"GET /readyz",
		"GET /metrics",
		"POST /v1/auth/register",
		"POST /v1/auth/login",
		"GET /v1/auth/me",
		"GET /v1/movies",
		"GET /v1/movies/:id/shows",
		"GET /v1/shows",
		"GET /v1/shows/:id",
		"GET /v1/shows/:id/availability",
		"POST /v1/shows/:id/book",
		"POST /v1/bookings/:id/cancel",
		"GET /v1/my-bookings",
	} {
		assert.Contains(t, got, want)
	}
}

func TestBookingRoutesRequireJWT(t *testing.T) {
	e := newTestRouter(pinger{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/v1/shows/1/book"},
		{http.MethodPost, "/v1/bookings/1/cancel"},
		{http.MethodGet, "/v1/my-bookings"},
		{http.MethodGet, "/v1/auth/me"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
}

func TestOperationalRoutes(t *testing.T) {
	e := newTestRouter(pinger{err: errors.New("down")})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
