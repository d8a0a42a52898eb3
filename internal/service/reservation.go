// Package service holds the reservation engine.  The Coordinator is the
// only code that creates bookings or changes their status; it keeps at
// most one BOOKED row per seat and never more BOOKED rows than a show
// has seats, also under concurrent requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-seat-booking/internal/lock"
	"github.com/iliyamo/cinema-seat-booking/internal/metrics"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// BookingStore is the persistence the Coordinator needs.
// repository.BookingRepo is the MySQL implementation.
type BookingStore interface {
	// WithShowLocked runs fn in a transaction holding the show's row
	// lock and commits only if fn returns nil.  Unknown shows yield
	// ErrShowNotFound.
	WithShowLocked(ctx context.Context, showID uint64, fn func(repository.ShowTx) error) error
	FindForUser(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	BookedSeats(ctx context.Context, showID uint64) (model.Show, []uint32, error)
}

// EventPublisher receives booking events after the change is committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

const (
	opBook   = "book"
	opCancel = "cancel"

	defaultMaxTries   = 3
	publishTimeout    = 2 * time.Second
	retryInitialDelay = 10 * time.Millisecond
)

// Coordinator serialises booking work per show.  Every mutation runs
// with two locks held on the show, the Locker first and then the
// database row lock, and the unique index on active seats stays as the
// last line of defence.
type Coordinator struct {
	store    BookingStore
	locker   lock.Locker
	events   EventPublisher
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
	maxTries uint
}

type Option func(*Coordinator)

// WithPublisher sends booking.created / booking.cancelled events to p.
func WithPublisher(p EventPublisher) Option {
	return func(c *Coordinator) { c.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides time.Now for booking timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxTries bounds how often a transaction is attempted when the
// database reports a deadlock or lock wait timeout.
func WithMaxTries(n uint) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

func NewCoordinator(store BookingStore, locker lock.Locker, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		locker:   locker,
		log:      zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		maxTries: defaultMaxTries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BookSeat reserves seat on showID for userID.
//
// Checks run in order range, seat taken, capacity, and nothing is
// written before all of them pass.  Retrying a successful call fails
// with ErrSeatTaken.
func (s *Coordinator) BookSeat(ctx context.Context, userID, showID uint64, seat uint32) (booking model.Booking, err error) {
	defer func() { s.count(opBook, err) }()

	if seat < 1 {
		return model.Booking{}, ErrInvalidSeat
	}
	booking, err = s.bookLocked(ctx, userID, showID, seat)
	if err != nil {
		return model.Booking{}, err
	}

	// the show lock is already released here
	s.publish(ctx, queue.EventBookingCreated, booking)
	return booking, nil
}

// bookLocked runs the booking transaction while holding the show lock.
func (s *Coordinator) bookLocked(ctx context.Context, userID, showID uint64, seat uint32) (model.Booking, error) {
	release, err := s.acquire(ctx, showID)
	if err != nil {
		return model.Booking{}, err
	}
	defer release()

	var booking model.Booking
	err = s.retry(ctx, func() error {
		return s.store.WithShowLocked(ctx, showID, func(tx repository.ShowTx) error {
			show := tx.Show()
			if !show.HasSeat(seat) {
				return ErrInvalidSeat
			}
			taken, err := tx.IsSeatBooked(ctx, seat)
			if err != nil {
				return err
			}
			if taken {
				return ErrSeatTaken
			}
			n, err := tx.CountBooked(ctx)
			if err != nil {
				return err
			}
			if n >= int(show.TotalSeats) {
				return ErrShowFull
			}

			b := model.Booking{
				UserID:     userID,
				ShowID:     showID,
				SeatNumber: seat,
				Status:     model.BookingBooked,
				CreatedAt:  s.now(),
			}
			if err := tx.Insert(ctx, &b); err != nil {
				return err
			}
			booking = b
			return nil
		})
	})
	if errors.Is(err, repository.ErrDuplicateSeat) {
		// another writer got the seat past both locks
		s.log.Warn("unique index rejected booking",
			zap.Uint64("show_id", showID), zap.Uint32("seat", seat))
		return model.Booking{}, ErrSeatTaken
	}
	if err != nil {
		return model.Booking{}, s.internal(opBook, showID, err)
	}
	return booking, nil
}

// CancelBooking moves the caller's booking to CANCELLED.  Bookings
// owned by someone else are reported as ErrBookingNotFound.
func (s *Coordinator) CancelBooking(ctx context.Context, userID, bookingID uint64) (err error) {
	defer func() { s.count(opCancel, err) }()

	b, err := s.store.FindForUser(ctx, bookingID, userID)
	if err != nil {
		return s.internal(opCancel, 0, err)
	}
	cancelled, err := s.cancelLocked(ctx, userID, bookingID, b.ShowID)
	if err != nil {
		return err
	}

	s.publish(ctx, queue.EventBookingCancelled, cancelled)
	return nil
}

// cancelLocked re-reads the booking under both show locks and flips
// it to CANCELLED.
func (s *Coordinator) cancelLocked(ctx context.Context, userID, bookingID, showID uint64) (model.Booking, error) {
	release, err := s.acquire(ctx, showID)
	if err != nil {
		return model.Booking{}, err
	}
	defer release()

	var cancelled model.Booking
	err = s.retry(ctx, func() error {
		return s.store.WithShowLocked(ctx, showID, func(tx repository.ShowTx) error {
			cur, err := tx.BookingForUpdate(ctx, bookingID, userID)
			if err != nil {
				return err
			}
			if cur.Status == model.BookingCancelled {
				return ErrAlreadyCancelled
			}
			if err := tx.SetStatus(ctx, bookingID, model.BookingCancelled); err != nil {
				return err
			}
			cur.Status = model.BookingCancelled
			cancelled = cur
			return nil
		})
	})
	if err != nil {
		return model.Booking{}, s.internal(opCancel, showID, err)
	}
	return cancelled, nil
}

// ListBookings returns all of userID's bookings, newest first.
func (s *Coordinator) ListBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return items, nil
}

// ShowAvailability derives the seat map of a show from its BOOKED
// rows.  It takes no locks, so the answer may be stale by the time the
// caller acts on it.
func (s *Coordinator) ShowAvailability(ctx context.Context, showID uint64) (model.Availability, error) {
	show, booked, err := s.store.BookedSeats(ctx, showID)
	if err != nil {
		if errors.Is(err, ErrShowNotFound) {
			return model.Availability{}, err
		}
		return model.Availability{}, fmt.Errorf("show availability: %w", err)
	}
	return model.NewAvailability(show, booked), nil
}

// acquire takes the per-show lock and records how long it waited.
func (s *Coordinator) acquire(ctx context.Context, showID uint64) (func(), error) {
	start := time.Now()
	release, err := s.locker.Acquire(ctx, showID)
	waited := time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, lock.ErrTimeout):
		outcome = metrics.OutcomeTimeout
		err = ErrLockTimeout
		s.log.Warn("show lock wait timed out",
			zap.Uint64("show_id", showID), zap.Duration("waited", waited))
	default:
		outcome = metrics.OutcomeError
		err = fmt.Errorf("acquire show lock: %w", err)
	}
	if s.metrics != nil {
		s.metrics.LockWait.WithLabelValues(s.locker.Backend(), outcome).Observe(waited.Seconds())
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

// retry runs fn again after deadlocks and lock wait timeouts.  Any
// other error ends the loop immediately.
func (s *Coordinator) retry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, repository.ErrTransient) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			if s.metrics != nil {
				s.metrics.TxRetries.Inc()
			}
			s.log.Debug("retrying booking transaction", zap.Error(err), zap.Duration("in", next))
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return err
}

// internal passes client errors through and logs everything else.
func (s *Coordinator) internal(op string, showID uint64, err error) error {
	if IsClientError(err) {
		return err
	}
	s.log.Error("booking operation failed",
		zap.String("operation", op), zap.Uint64("show_id", showID), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Coordinator) count(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrLockTimeout):
		outcome = metrics.OutcomeTimeout
	case IsClientError(err):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.BookingsTotal.WithLabelValues(op, outcome).Inc()
}

// publish is best effort: the booking is committed whatever happens
// here.  Callers must not hold the show lock.
func (s *Coordinator) publish(ctx context.Context, typ string, b model.Booking) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, queue.NewBookingEvent(typ, b, s.now())); err != nil {
		s.log.Warn("publish booking event failed",
			zap.String("type", typ), zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}
