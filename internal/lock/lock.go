// Package lock serialises booking work per show.  A Locker hands out
// one holder at a time for a given show ID and gives up after a bounded
// wait instead of queueing forever.
package lock

import (
	"context"
	"errors"
)

// ErrTimeout is returned when the wait bound elapses before the lock
// is obtained.
var ErrTimeout = errors.New("lock: wait timeout")

// Locker is implemented by the in-process Keyed mutex and the Redis lock.
//
// Acquire blocks until the caller holds the lock for showID, the
// locker's wait bound elapses (ErrTimeout) or ctx ends (ctx.Err()).
// The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, showID uint64) (release func(), err error)
	Backend() string
}
