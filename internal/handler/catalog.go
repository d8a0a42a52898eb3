package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// CatalogHandler serves the public, read-only movie and show listings.
type CatalogHandler struct {
	Shows CatalogStore
}

func NewCatalogHandler(shows CatalogStore) *CatalogHandler {
	return &CatalogHandler{Shows: shows}
}

// ListMovies handles GET /v1/movies.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	movies, err := h.Shows.ListMovies(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// MovieShows handles GET /v1/movies/:id/shows.
func (h *CatalogHandler) MovieShows(c echo.Context) error {
	movieID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx := c.Request().Context()
	movie, err := h.Shows.GetMovie(ctx, movieID)
	if err != nil {
		return writeError(c, err)
	}
	shows, err := h.Shows.ListByMovie(ctx, movieID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movie": movie, "items": shows})
}

// GetShow handles GET /v1/shows/:id.
func (h *CatalogHandler) GetShow(c echo.Context) error {
	showID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	s, err := h.Shows.GetByID(c.Request().Context(), showID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// SearchShows handles GET /v1/shows.
// time: "upcoming" (default) or "any" (no time filter)
func (h *CatalogHandler) SearchShows(c echo.Context) error {
	timeFilter := strings.ToLower(strings.TrimSpace(c.QueryParam("time")))
	if timeFilter == "" {
		timeFilter = "upcoming"
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	q := repository.ShowSearchQuery{
		Title:      strings.TrimSpace(c.QueryParam("title")),
		Screen:     strings.TrimSpace(c.QueryParam("screen")),
		TimeFilter: timeFilter,
		Page:       page,
		PageSize:   ps,
	}
	items, total, err := h.Shows.Search(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}
