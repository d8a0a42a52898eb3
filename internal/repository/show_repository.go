// Catalogue reads: movies and their scheduled shows.  The booking
// engine never writes to these tables.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// ShowRepo reads movies and shows.
type ShowRepo struct {
	db *sqlx.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sqlx.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// showDetailColumns selects a show joined with its movie in the shape
// of showDetailRow.
const showDetailColumns = `
       s.id, s.movie_id, s.screen_name, s.starts_at, s.total_seats,
       m.title, m.duration_minutes`

type showDetailRow struct {
	model.Show
	Title           string `db:"title"`
	DurationMinutes uint32 `db:"duration_minutes"`
}

func (row showDetailRow) detail() model.ShowDetail {
	return model.ShowDetail{
		Show: row.Show,
		Movie: model.Movie{
			ID:              row.MovieID,
			Title:           row.Title,
			DurationMinutes: row.DurationMinutes,
		},
	}
}

func toDetails(rows []showDetailRow) []model.ShowDetail {
	out := make([]model.ShowDetail, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.detail())
	}
	return out
}

// ListMovies returns every movie ordered by title.
func (r *ShowRepo) ListMovies(ctx context.Context) ([]model.Movie, error) {
	movies := []model.Movie{}
	err := r.db.SelectContext(ctx, &movies,
		`SELECT id, title, duration_minutes FROM movies ORDER BY title, id`)
	if err != nil {
		return nil, wrap("list movies", err)
	}
	return movies, nil
}

// GetMovie returns ErrMovieNotFound for an unknown ID.
func (r *ShowRepo) GetMovie(ctx context.Context, id uint64) (model.Movie, error) {
	var m model.Movie
	err := r.db.GetContext(ctx, &m, `SELECT id, title, duration_minutes FROM movies WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrMovieNotFound
	}
	if err != nil {
		return model.Movie{}, wrap("get movie", err)
	}
	return m, nil
}

// ListByMovie returns the shows of a movie in start order.
func (r *ShowRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.ShowDetail, error) {
	var rows []showDetailRow
	err := r.db.SelectContext(ctx, &rows, `SELECT`+showDetailColumns+`
  FROM shows s JOIN movies m ON m.id = s.movie_id
 WHERE s.movie_id = ?
 ORDER BY s.starts_at, s.id`, movieID)
	if err != nil {
		return nil, wrap("list shows", err)
	}
	return toDetails(rows), nil
}

// GetByID returns ErrShowNotFound for an unknown ID.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (model.ShowDetail, error) {
	var row showDetailRow
	err := r.db.GetContext(ctx, &row, `SELECT`+showDetailColumns+`
  FROM shows s JOIN movies m ON m.id = s.movie_id
 WHERE s.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ShowDetail{}, ErrShowNotFound
	}
	if err != nil {
		return model.ShowDetail{}, wrap("get show", err)
	}
	return row.detail(), nil
}
