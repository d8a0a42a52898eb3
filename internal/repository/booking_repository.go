package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// ShowTx is the booking work allowed while a show row is locked.  It
// is only valid inside the callback given to WithShowLocked.
type ShowTx interface {
	// Show is the locked show as read at the start of the transaction.
	Show() model.Show
	IsSeatBooked(ctx context.Context, seat uint32) (bool, error)
	CountBooked(ctx context.Context) (int, error)
	// Insert stores b and fills its ID.  A BOOKED row already holding
	// the seat yields ErrDuplicateSeat.
	Insert(ctx context.Context, b *model.Booking) error
	// BookingForUpdate reads and row-locks a booking of this show owned
	// by userID.
	BookingForUpdate(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
	SetStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error
}

// BookingRepo persists bookings in MySQL.
type BookingRepo struct{ db *sqlx.DB }

func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

const showColumns = `id, movie_id, screen_name, starts_at, total_seats`

// WithShowLocked opens a transaction, locks the show row with
// SELECT ... FOR UPDATE and runs fn.  The transaction commits only when
// fn returns nil; every other path rolls back.
func (r *BookingRepo) WithShowLocked(ctx context.Context, showID uint64, fn func(ShowTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var s model.Show
	err = tx.GetContext(ctx, &s, `SELECT `+showColumns+` FROM shows WHERE id = ? FOR UPDATE`, showID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShowNotFound
	}
	if err != nil {
		return wrap("lock show", err)
	}

	if err := fn(&showTx{tx: tx, show: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isDuplicate(err) {
			return ErrDuplicateSeat
		}
		return wrap("commit", err)
	}
	committed = true
	return nil
}

// FindForUser returns the booking only when userID owns it.
func (r *BookingRepo) FindForUser(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	var b model.Booking
	err := r.db.GetContext(ctx, &b,
		`SELECT id, user_id, show_id, seat_number, status, created_at
           FROM bookings WHERE id = ? AND user_id = ?`, bookingID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, wrap("find booking", err)
	}
	return b, nil
}

// bookingDetailRow is the flat shape of the my-bookings join.
type bookingDetailRow struct {
	ID              uint64              `db:"id"`
	SeatNumber      uint32              `db:"seat_number"`
	Status          model.BookingStatus `db:"status"`
	CreatedAt       time.Time           `db:"created_at"`
	ShowID          uint64              `db:"show_id"`
	MovieID         uint64              `db:"movie_id"`
	ScreenName      string              `db:"screen_name"`
	StartsAt        time.Time           `db:"starts_at"`
	TotalSeats      uint32              `db:"total_seats"`
	Title           string              `db:"title"`
	DurationMinutes uint32              `db:"duration_minutes"`
}

func (row bookingDetailRow) detail() model.BookingDetail {
	return model.BookingDetail{
		ID:         row.ID,
		SeatNumber: row.SeatNumber,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt,
		Show: model.ShowDetail{
			Show: model.Show{
				ID:         row.ShowID,
				MovieID:    row.MovieID,
				ScreenName: row.ScreenName,
				StartsAt:   row.StartsAt,
				TotalSeats: row.TotalSeats,
			},
			Movie: model.Movie{
				ID:              row.MovieID,
				Title:           row.Title,
				DurationMinutes: row.DurationMinutes,
			},
		},
	}
}

// ListByUser returns every booking of userID, newest first, with show
// and movie attached.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	const q = `
SELECT b.id, b.seat_number, b.status, b.created_at,
       s.id AS show_id, s.movie_id, s.screen_name, s.starts_at, s.total_seats,
       m.title, m.duration_minutes
  FROM bookings b
  JOIN shows s  ON s.id = b.show_id
  JOIN movies m ON m.id = s.movie_id
 WHERE b.user_id = ?
 ORDER BY b.created_at DESC, b.id DESC`
	var rows []bookingDetailRow
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, wrap("list bookings", err)
	}
	out := make([]model.BookingDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.detail())
	}
	return out, nil
}

// BookedSeats returns the show and the sorted seat numbers of its
// BOOKED rows.  It takes no locks.
func (r *BookingRepo) BookedSeats(ctx context.Context, showID uint64) (model.Show, []uint32, error) {
	var s model.Show
	err := r.db.GetContext(ctx, &s, `SELECT `+showColumns+` FROM shows WHERE id = ?`, showID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Show{}, nil, ErrShowNotFound
	}
	if err != nil {
		return model.Show{}, nil, wrap("get show", err)
	}
	seats := []uint32{}
	if err := r.db.SelectContext(ctx, &seats,
		`SELECT seat_number FROM bookings WHERE show_id = ? AND status = ? ORDER BY seat_number`,
		showID, model.BookingBooked); err != nil {
		return model.Show{}, nil, wrap("booked seats", err)
	}
	return s, seats, nil
}

type showTx struct {
	tx   *sqlx.Tx
	show model.Show
}

func (t *showTx) Show() model.Show { return t.show }

func (t *showTx) IsSeatBooked(ctx context.Context, seat uint32) (bool, error) {
	var n int
	err := t.tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM bookings WHERE show_id = ? AND seat_number = ? AND status = ?`,
		t.show.ID, seat, model.BookingBooked)
	if err != nil {
		return false, wrap("seat lookup", err)
	}
	return n > 0, nil
}

func (t *showTx) CountBooked(ctx context.Context) (int, error) {
	var n int
	err := t.tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM bookings WHERE show_id = ? AND status = ?`,
		t.show.ID, model.BookingBooked)
	if err != nil {
		return 0, wrap("count booked", err)
	}
	return n, nil
}

func (t *showTx) Insert(ctx context.Context, b *model.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, show_id, seat_number, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, t.show.ID, b.SeatNumber, b.Status, b.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateSeat
		}
		return wrap("insert booking", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrap("insert booking id", err)
	}
	b.ID = uint64(id)
	b.ShowID = t.show.ID
	return nil
}

func (t *showTx) BookingForUpdate(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	var b model.Booking
	err := t.tx.GetContext(ctx, &b,
		`SELECT id, user_id, show_id, seat_number, status, created_at
           FROM bookings WHERE id = ? AND user_id = ? AND show_id = ? FOR UPDATE`,
		bookingID, userID, t.show.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, wrap("lock booking", err)
	}
	return b, nil
}

func (t *showTx) SetStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND show_id = ?`, status, bookingID, t.show.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateSeat
		}
		return wrap("update booking", err)
	}
	return nil
}
