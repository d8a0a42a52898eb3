package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// ShowSearchQuery defines filters & pagination for searching shows.
// TimeFilter is "upcoming" (default) or "any".
type ShowSearchQuery struct {
	Title      string
	Screen     string
	TimeFilter string
	Page       int
	PageSize   int
}

// buildSearchWhere turns the filters into a WHERE clause and its args.
func buildSearchWhere(q ShowSearchQuery) (string, []any) {
	where := []string{}
	args := []any{}

	switch strings.ToLower(q.TimeFilter) {
	case "any":
	default:
		where = append(where, "s.starts_at >= UTC_TIMESTAMP()")
	}

	if q.Title != "" {
		where = append(where, "LOWER(m.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Screen != "" {
		where = append(where, "LOWER(s.screen_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Screen)+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	return cond, args
}

// Search returns one page of shows matching q plus the total number of
// matches.
func (r *ShowRepo) Search(ctx context.Context, q ShowSearchQuery) ([]model.ShowDetail, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	cond, args := buildSearchWhere(q)

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM shows s
		JOIN movies m ON m.id = s.movie_id
		WHERE ` + cond
	if err := r.db.GetContext(ctx, &total, countSQL, args...); err != nil {
		return nil, 0, wrap("count shows", err)
	}

	dataSQL := `SELECT` + showDetailColumns + `
		FROM shows s
		JOIN movies m ON m.id = s.movie_id
		WHERE ` + cond + `
		ORDER BY s.starts_at ASC, s.id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	var rows []showDetailRow
	if err := r.db.SelectContext(ctx, &rows, dataSQL, argsData...); err != nil {
		return nil, 0, wrap("search shows", err)
	}
	return toDetails(rows), total, nil
}
