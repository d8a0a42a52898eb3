package config

import (
	"strings"
	"time"
)

// Lock backends understood by LoadLockConfig.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// LockConfig controls how booking and cancellation requests are
// serialised per show.
//
// Backend selects the in-process keyed mutex ("local") or the Redis
// lock ("redis", needed when several instances share one database).
// WaitTimeout bounds how long a request queues for a show before it
// gives up.  TTL is the Redis lock expiry, which must comfortably
// exceed one booking transaction.  RetryInterval is the initial Redis
// polling interval while the lock is held elsewhere.
type LockConfig struct {
	Backend       string
	WaitTimeout   time.Duration
	TTL           time.Duration
	RetryInterval time.Duration
	Prefix        string
}

// LoadLockConfig reads LOCK_* variables.  Unknown backends fall back to
// the local mutex.
func LoadLockConfig() LockConfig {
	c := LockConfig{
		Backend:       strings.ToLower(envStr("LOCK_BACKEND", LockBackendLocal)),
		WaitTimeout:   envDur("LOCK_WAIT_TIMEOUT", 5*time.Second),
		TTL:           envDur("LOCK_TTL", 10*time.Second),
		RetryInterval: envDur("LOCK_RETRY_INTERVAL", 20*time.Millisecond),
		Prefix:        envStr("LOCK_PREFIX", "lock:show"),
	}
	if c.Backend != LockBackendRedis {
		c.Backend = LockBackendLocal
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 5 * time.Second
	}
	if c.TTL < c.WaitTimeout {
		c.TTL = 2 * c.WaitTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 20 * time.Millisecond
	}
	return c
}
