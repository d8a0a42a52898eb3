package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// memStore is an in-memory BookingStore.  Like the MySQL schema it
// rejects a second BOOKED row for a seat, and WithShowLocked holds a
// per-show mutex in place of the row lock.  Writes are staged and only
// applied when the callback succeeds.
type memStore struct {
	mu       sync.Mutex
	rowLocks map[uint64]*sync.Mutex
	shows    map[uint64]model.Show
	bookings []model.Booking
	nextID   uint64
	txCalls  int

	// transientFailures makes the next n transactions fail with
	// repository.ErrTransient.
	transientFailures int
	// beforeInsert runs inside Insert before the uniqueness check.
	beforeInsert func(b model.Booking)
}

func newMemStore() *memStore {
	return &memStore{
		rowLocks: map[uint64]*sync.Mutex{},
		shows:    map[uint64]model.Show{},
	}
}

func (m *memStore) addShow(id uint64, total uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shows[id] = model.Show{ID: id, MovieID: 1, ScreenName: "Screen 1", TotalSeats: total}
}

// addBooking stores a committed row directly, bypassing every check.
func (m *memStore) addBooking(b model.Booking) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.bookings = append(m.bookings, b)
	return b
}

func (m *memStore) booked(showID uint64) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var seats []uint32
	for _, b := range m.bookings {
		if b.ShowID == showID && b.Status == model.BookingBooked {
			seats = append(seats, b.SeatNumber)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i] < seats[j] })
	return seats
}

func (m *memStore) rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) WithShowLocked(ctx context.Context, showID uint64, fn func(repository.ShowTx) error) error {
	m.mu.Lock()
	m.txCalls++
	if m.transientFailures > 0 {
		m.transientFailures--
		m.mu.Unlock()
		return fmt.Errorf("lock show: %w", repository.ErrTransient)
	}
	show, ok := m.shows[showID]
	rl, exists := m.rowLocks[showID]
	if !exists {
		rl = &sync.Mutex{}
		m.rowLocks[showID] = rl
	}
	m.mu.Unlock()
	if !ok {
		return repository.ErrShowNotFound
	}

	rl.Lock()
	defer rl.Unlock()

	tx := &memTx{store: m, show: show, updates: map[uint64]model.BookingStatus{}}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bookings {
		if st, ok := tx.updates[m.bookings[i].ID]; ok {
			m.bookings[i].Status = st
		}
	}
	m.bookings = append(m.bookings, tx.inserts...)
	return nil
}

func (m *memStore) FindForUser(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == bookingID && b.UserID == userID {
			return b, nil
		}
	}
	return model.Booking{}, repository.ErrBookingNotFound
}

func (m *memStore) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BookingDetail{}
	for i := len(m.bookings) - 1; i >= 0; i-- {
		b := m.bookings[i]
		if b.UserID != userID {
			continue
		}
		out = append(out, model.BookingDetail{
			ID: b.ID, SeatNumber: b.SeatNumber, Status: b.Status, CreatedAt: b.CreatedAt,
			Show: model.ShowDetail{Show: m.shows[b.ShowID]},
		})
	}
	return out, nil
}

func (m *memStore) BookedSeats(ctx context.Context, showID uint64) (model.Show, []uint32, error) {
	m.mu.Lock()
	show, ok := m.shows[showID]
	m.mu.Unlock()
	if !ok {
		return model.Show{}, nil, repository.ErrShowNotFound
	}
	return show, m.booked(showID), nil
}

type memTx struct {
	store   *memStore
	show    model.Show
	inserts []model.Booking
	updates map[uint64]model.BookingStatus
}

func (t *memTx) Show() model.Show { return t.show }

func (t *memTx) IsSeatBooked(ctx context.Context, seat uint32) (bool, error) {
	for _, s := range t.store.booked(t.show.ID) {
		if s == seat {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CountBooked(ctx context.Context) (int, error) {
	return len(t.store.booked(t.show.ID)), nil
}

func (t *memTx) Insert(ctx context.Context, b *model.Booking) error {
	if t.store.beforeInsert != nil {
		t.store.beforeInsert(*b)
	}
	taken, _ := t.IsSeatBooked(ctx, b.SeatNumber)
	if taken && b.Status == model.BookingBooked {
		return repository.ErrDuplicateSeat
	}
	t.store.mu.Lock()
	t.store.nextID++
	b.ID = t.store.nextID
	t.store.mu.Unlock()
	b.ShowID = t.show.ID
	t.inserts = append(t.inserts, *b)
	return nil
}

func (t *memTx) BookingForUpdate(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	b, err := t.store.FindForUser(ctx, bookingID, userID)
	if err != nil || b.ShowID != t.show.ID {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (t *memTx) SetStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error {
	t.updates[bookingID] = status
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// stallingPublisher blocks the first event of type stall until unblock
// is closed or the publish context ends.  Other events pass straight
// through.
type stallingPublisher struct {
	stall   string
	entered chan struct{}
	unblock chan struct{}

	once        sync.Once
	mu          sync.Mutex
	hasDeadline bool
	deadline    time.Time
}

func newStallingPublisher(stall string) *stallingPublisher {
	return &stallingPublisher{
		stall:   stall,
		entered: make(chan struct{}),
		unblock: make(chan struct{}),
	}
}

func (p *stallingPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	if ev.Type != p.stall {
		return nil
	}
	first := false
	p.once.Do(func() { first = true })
	if !first {
		return nil
	}
	p.mu.Lock()
	p.deadline, p.hasDeadline = ctx.Deadline()
	p.mu.Unlock()
	close(p.entered)

	select {
	case <-p.unblock:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
