package lock

import (
	"context"
	"sync"
	"time"
)

// Keyed is an in-process mutex per show ID.  Entries are reference
// counted and removed once no goroutine holds or waits for them, so
// the map only grows with the number of shows in flight.
type Keyed struct {
	wait time.Duration

	mu      sync.Mutex
	entries map[uint64]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{} // capacity 1; a send means "held"
	refs int
}

// NewKeyed returns a Keyed locker.  wait <= 0 disables the bound and
// only ctx limits the wait.
func NewKeyed(wait time.Duration) *Keyed {
	return &Keyed{wait: wait, entries: make(map[uint64]*keyedEntry)}
}

func (k *Keyed) Backend() string { return "local" }

func (k *Keyed) Acquire(ctx context.Context, showID uint64) (func(), error) {
	e := k.ref(showID)

	var timeout <-chan time.Time
	if k.wait > 0 {
		t := time.NewTimer(k.wait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.unref(showID, e)
		return nil, ctx.Err()
	case <-timeout:
		k.unref(showID, e)
		return nil, ErrTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.unref(showID, e)
		})
	}, nil
}

// Len reports how many shows currently have holders or waiters.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *Keyed) ref(showID uint64) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[showID]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		k.entries[showID] = e
	}
	e.refs++
	return e
}

func (k *Keyed) unref(showID uint64, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, showID)
	}
}
